package main

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"strings"
)

// runScript drives an App from a line-oriented build script, one command
// per line:
//
//	catalog PATH            load a YAML or DSL catalog
//	select NAME             select (or toggle off) a definition
//	aim PX PY PZ FX FY FZ   camera position and forward
//	rotate N | vertical N | depth N
//	mode                    cycle the snap mode
//	confirm | cancel
//	tick [N] [DT]           run N frames of DT seconds (1, 1/60)
//	print                   write the placed buildings as JSON
//
// Blank lines and lines starting with # are ignored. The placed buildings
// are written to out as JSON when the script ends.
func runScript(app *App, r io.Reader, out io.Writer) error {
	sc := bufio.NewScanner(r)
	line := 0
	for sc.Scan() {
		line++
		fields := strings.Fields(sc.Text())
		if len(fields) == 0 || strings.HasPrefix(fields[0], "#") {
			continue
		}
		if err := runCommand(app, fields, out); err != nil {
			return fmt.Errorf("script line %d: %w", line, err)
		}
	}
	if err := sc.Err(); err != nil {
		return fmt.Errorf("script: %w", err)
	}
	return printPlaced(app, out)
}

func runCommand(app *App, fields []string, out io.Writer) error {
	cmd, args := fields[0], fields[1:]
	switch cmd {
	case "catalog":
		if len(args) != 1 {
			return fmt.Errorf("catalog takes a path")
		}
		res := app.LoadCatalogFile(args[0])
		if len(res.Errors) > 0 {
			e := res.Errors[0]
			return fmt.Errorf("catalog %s:%d:%d: %s", args[0], e.Line, e.Col, e.Message)
		}
	case "select":
		if len(args) != 1 {
			return fmt.Errorf("select takes a definition name")
		}
		if _, err := app.Select(args[0]); err != nil {
			return err
		}
	case "aim":
		v, err := floats(args, 6)
		if err != nil {
			return fmt.Errorf("aim: %w", err)
		}
		app.Aim([3]float64{v[0], v[1], v[2]}, [3]float64{v[3], v[4], v[5]})
	case "rotate", "vertical", "depth":
		if len(args) != 1 {
			return fmt.Errorf("%s takes one step count", cmd)
		}
		n, err := strconv.Atoi(args[0])
		if err != nil {
			return fmt.Errorf("%s: %w", cmd, err)
		}
		switch cmd {
		case "rotate":
			app.Rotate(n)
		case "vertical":
			app.ShiftVertical(n)
		default:
			app.ShiftDepth(n)
		}
	case "mode":
		app.CycleMode()
	case "confirm":
		app.Confirm()
	case "cancel":
		app.Cancel()
	case "tick":
		frames, dt := 1, 1.0/60
		if len(args) > 0 {
			n, err := strconv.Atoi(args[0])
			if err != nil || n < 1 {
				return fmt.Errorf("tick: bad frame count %q", args[0])
			}
			frames = n
		}
		if len(args) > 1 {
			d, err := strconv.ParseFloat(args[1], 64)
			if err != nil {
				return fmt.Errorf("tick: %w", err)
			}
			dt = d
		}
		for i := 0; i < frames; i++ {
			if f := app.Tick(dt); f.Error != "" {
				return fmt.Errorf("tick: %s", f.Error)
			}
		}
	case "print":
		return printPlaced(app, out)
	default:
		return fmt.Errorf("unknown command %q", cmd)
	}
	return nil
}

func floats(args []string, n int) ([]float64, error) {
	if len(args) != n {
		return nil, fmt.Errorf("want %d numbers, got %d", n, len(args))
	}
	v := make([]float64, n)
	for i, a := range args {
		f, err := strconv.ParseFloat(a, 64)
		if err != nil {
			return nil, err
		}
		v[i] = f
	}
	return v, nil
}

func printPlaced(app *App, out io.Writer) error {
	enc := json.NewEncoder(out)
	enc.SetIndent("", "  ")
	return enc.Encode(app.Placed())
}
