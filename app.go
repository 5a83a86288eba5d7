package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/chazu/kexbuild/pkg/catalog"
	"github.com/chazu/kexbuild/pkg/config"
	"github.com/chazu/kexbuild/pkg/engine"
	"github.com/chazu/kexbuild/pkg/geom"
	"github.com/chazu/kexbuild/pkg/kernel"
	"github.com/chazu/kexbuild/pkg/kernel/sdfx"
	"github.com/chazu/kexbuild/pkg/markers"
	"github.com/chazu/kexbuild/pkg/placement"
	"github.com/chazu/kexbuild/pkg/session"
	"github.com/chazu/kexbuild/pkg/store"
	"github.com/chazu/kexbuild/pkg/tessellate"
	"github.com/chazu/kexbuild/pkg/world"
	"github.com/rs/zerolog"
)

// colorPalette is a default palette used to assign distinct colors to
// definitions.
var colorPalette = []string{
	"#4A90D9", "#E67E22", "#2ECC71", "#9B59B6",
	"#E74C3C", "#1ABC9C", "#F39C12", "#3498DB",
}

// ghostColor is used for every pending object's preview.
const ghostColor = "#FFFFFF"

// App is the frontend binding. It owns one catalog, one placed-object store
// and one build session; loading a catalog starts both afresh.
type App struct {
	ctx    context.Context
	log    zerolog.Logger
	cfg    config.Config
	engine *engine.Engine
	kernel kernel.Kernel

	mu       sync.Mutex
	catalog  *catalog.Catalog
	store    *store.Store[placement.Placed]
	pipeline *placement.Pipeline
	session  *session.Session
	tess     *tessellate.Tessellator
}

// MeshData is the JSON-serializable mesh format sent to the frontend.
type MeshData struct {
	Vertices []float32 `json:"vertices"`
	Normals  []float32 `json:"normals"`
	Indices  []uint32  `json:"indices"`
	Name     string    `json:"name"`
	Color    string    `json:"color"`
	Ghost    bool      `json:"ghost"`
	// Axis-aligned bounds for camera framing and picking.
	Min [3]float64 `json:"min"`
	Max [3]float64 `json:"max"`
}

// EvalErrorData is a JSON-serializable eval error for the frontend.
type EvalErrorData struct {
	Line    int    `json:"line"`
	Col     int    `json:"col"`
	Message string `json:"message"`
}

// DefinitionData describes one catalog entry.
type DefinitionData struct {
	Name       string     `json:"name"`
	Center     [3]float64 `json:"center"`
	Size       [3]float64 `json:"size"`
	SnapPoints int        `json:"snapPoints"`
	Color      string     `json:"color"`
}

// CatalogResult is returned by the catalog loading bindings.
type CatalogResult struct {
	Definitions []DefinitionData `json:"definitions"`
	Errors      []EvalErrorData  `json:"errors"`
}

// PendingData is the pending object as the frontend sees it.
type PendingData struct {
	ID       uint64     `json:"id"`
	Name     string     `json:"name"`
	Position [3]float64 `json:"position"`
	Rotation [4]float64 `json:"rotation"` // x, y, z, w
	Yaw      float64    `json:"yaw"`
	Snapped  bool       `json:"snapped"`
	Vertical int        `json:"vertical"`
	Depth    int        `json:"depth"`
}

// PlacedData is one committed building.
type PlacedData struct {
	ID       uint64     `json:"id"`
	Name     string     `json:"name"`
	Position [3]float64 `json:"position"`
	Yaw      float64    `json:"yaw"`
}

// FrameData is returned by Tick.
type FrameData struct {
	Pending   *PendingData `json:"pending"`
	Committed []PlacedData `json:"committed"`
	Placed    int          `json:"placed"`
	Mode      string       `json:"mode"`
	Error     string       `json:"error,omitempty"`
}

// NewApp creates an App with the sdfx kernel and an empty catalog.
func NewApp(cfg config.Config, log zerolog.Logger) *App {
	eng := engine.NewEngine()
	eng.SetTimeout(cfg.Engine.Timeout)
	a := &App{
		ctx:    context.Background(),
		log:    log.With().Str("component", "app").Logger(),
		cfg:    cfg,
		engine: eng,
		kernel: sdfx.New().WithMeshCells(cfg.Kernel.MeshCells),
	}
	a.reset(catalog.Empty())
	return a
}

// startup is called by Wails on app startup. The context is saved
// so that ticks are cancelled on shutdown.
func (a *App) startup(ctx context.Context) {
	a.ctx = ctx
}

// reset installs cat and starts an empty world around it. The caller
// holds a.mu or owns a exclusively.
func (a *App) reset(cat *catalog.Catalog) {
	settings, err := a.cfg.Settings()
	if err != nil {
		a.log.Warn().Err(err).Msg("invalid placement settings, using defaults")
		settings = placement.DefaultSettings()
	}
	if a.pipeline != nil {
		// Keep a mode the player cycled to.
		settings.Mode = a.pipeline.Settings().Mode
	}

	a.catalog = cat
	a.store = store.New[placement.Placed]()
	w := world.New(a.kernel, cat, a.cfg.Terrain, a.log)
	a.pipeline = placement.NewPipeline(cat, a.store, w, settings, a.log)
	a.pipeline.SetWorkers(a.cfg.Placement.Workers)
	a.session = session.New(a.pipeline, a.log)
	a.tess = tessellate.New(a.kernel, cat)
}

// LoadCatalog evaluates catalog DSL source and, when it has no errors,
// replaces the catalog and clears the world.
func (a *App) LoadCatalog(source string) CatalogResult {
	result := CatalogResult{
		Definitions: []DefinitionData{},
		Errors:      []EvalErrorData{},
	}

	cat, evalErrs, err := a.engine.EvaluateContext(a.ctx, source)
	if err != nil {
		// Fatal error (panic, timeout, etc.)
		a.log.Error().Err(err).Msg("catalog evaluation failed")
		result.Errors = append(result.Errors, EvalErrorData{Message: err.Error()})
		return result
	}
	if len(evalErrs) > 0 {
		for _, e := range evalErrs {
			result.Errors = append(result.Errors, EvalErrorData{
				Line:    e.Line,
				Col:     e.Col,
				Message: e.Message,
			})
		}
		return result
	}

	return a.install(cat)
}

// LoadCatalogFile loads a YAML catalog (.yaml, .yml) or a DSL source file.
func (a *App) LoadCatalogFile(path string) CatalogResult {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		cat, err := catalog.LoadYAML(path)
		if err != nil {
			a.log.Error().Err(err).Str("path", path).Msg("catalog load failed")
			return CatalogResult{
				Definitions: []DefinitionData{},
				Errors:      []EvalErrorData{{Message: err.Error()}},
			}
		}
		return a.install(cat)
	}

	source, err := os.ReadFile(path)
	if err != nil {
		return CatalogResult{
			Definitions: []DefinitionData{},
			Errors:      []EvalErrorData{{Message: fmt.Sprintf("read catalog: %v", err)}},
		}
	}
	return a.LoadCatalog(string(source))
}

func (a *App) install(cat *catalog.Catalog) CatalogResult {
	a.mu.Lock()
	a.reset(cat)
	a.mu.Unlock()

	a.log.Info().Int("definitions", cat.Len()).Strs("names", cat.Names()).Msg("catalog loaded")
	return CatalogResult{
		Definitions: a.Definitions(),
		Errors:      []EvalErrorData{},
	}
}

// Definitions lists the loaded catalog in ID order.
func (a *App) Definitions() []DefinitionData {
	a.mu.Lock()
	cat := a.catalog
	a.mu.Unlock()

	defs := make([]DefinitionData, 0, cat.Len())
	for _, d := range cat.All() {
		defs = append(defs, DefinitionData{
			Name:       d.Name,
			Center:     d.Center,
			Size:       d.Size,
			SnapPoints: len(d.SnapPoints),
			Color:      colorFor(d.ID),
		})
	}
	return defs
}

func (a *App) current() (*session.Session, *placement.Pipeline) {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.session, a.pipeline
}

// Select starts or toggles off positioning of the named definition. It
// returns whether an object is pending afterwards.
func (a *App) Select(name string) (bool, error) {
	s, _ := a.current()
	return s.Select(name)
}

// Cancel drops the pending object.
func (a *App) Cancel() {
	s, _ := a.current()
	s.Cancel()
}

// Aim sets the camera ray for the next Tick.
func (a *App) Aim(cameraPos, cameraForward [3]float64) {
	s, _ := a.current()
	s.Aim(geom.Vec3(cameraPos), geom.Vec3(cameraForward))
}

// Rotate turns the pending object by steps of 15 degrees.
func (a *App) Rotate(steps int) {
	s, _ := a.current()
	s.Rotate(steps)
}

// ShiftVertical moves the pending object by grid steps along +Y.
func (a *App) ShiftVertical(delta int) {
	s, _ := a.current()
	s.ShiftVertical(delta)
}

// ShiftDepth moves the pending object by grid steps away from the viewer.
func (a *App) ShiftDepth(delta int) {
	s, _ := a.current()
	s.ShiftDepth(delta)
}

// Confirm requests placement of the pending object on the next Tick.
func (a *App) Confirm() bool {
	s, _ := a.current()
	return s.Confirm()
}

// CycleMode advances the snap mode and returns its name.
func (a *App) CycleMode() string {
	s, _ := a.current()
	return s.CycleMode().String()
}

// Tick advances placement by dt seconds.
func (a *App) Tick(dt float64) FrameData {
	s, p := a.current()
	cat := p.Catalog()

	res, err := s.Tick(a.ctx, dt)
	frame := FrameData{
		Committed: []PlacedData{},
		Placed:    res.Snapshot.Len(),
		Mode:      p.Settings().Mode.String(),
	}
	if err != nil {
		frame.Error = err.Error()
	}
	for _, pl := range res.Placed {
		frame.Committed = append(frame.Committed, placedData(cat, pl))
	}
	if pend, ok := s.Pending(); ok {
		pd := pendingData(cat, pend)
		frame.Pending = &pd
	}
	return frame
}

// Placed lists every committed building.
func (a *App) Placed() []PlacedData {
	_, p := a.current()
	snap := p.Snapshot()
	out := make([]PlacedData, 0, snap.Len())
	for _, pl := range snap.Items() {
		out = append(out, placedData(p.Catalog(), pl))
	}
	return out
}

// Meshes returns the placed buildings followed by the ghost, if one is
// shown.
func (a *App) Meshes() ([]MeshData, error) {
	a.mu.Lock()
	s, p, tess := a.session, a.pipeline, a.tess
	a.mu.Unlock()

	items := p.Snapshot().Items()
	placed, err := tess.Placed(items)
	if err != nil {
		return nil, err
	}
	var pending []*placement.Pending
	if pend, ok := s.Pending(); ok {
		pending = append(pending, &pend)
	}
	ghosts, err := tess.Ghosts(pending)
	if err != nil {
		return nil, err
	}

	out := make([]MeshData, 0, len(placed)+len(ghosts))
	for i, m := range placed {
		out = append(out, meshData(m, colorFor(items[i].Def)))
	}
	for _, m := range ghosts {
		out = append(out, meshData(m, ghostColor))
	}
	return out, nil
}

func meshData(m *kernel.Mesh, color string) MeshData {
	lo, hi := m.Bounds()
	return MeshData{
		Vertices: m.Vertices,
		Normals:  m.Normals,
		Indices:  m.Indices,
		Name:     m.Name,
		Color:    color,
		Ghost:    m.Ghost,
		Min:      lo,
		Max:      hi,
	}
}

// Markers returns the snap points to draw around the pending object.
func (a *App) Markers() []markers.Marker {
	s, p := a.current()
	pend, ok := s.Pending()
	if !ok {
		return []markers.Marker{}
	}
	out := markers.Gather([]*placement.Pending{&pend}, p.Snapshot().Items(), p.Catalog(), p.Settings())
	if out == nil {
		out = []markers.Marker{}
	}
	return out
}

func colorFor(id catalog.ID) string {
	return colorPalette[int(id)%len(colorPalette)]
}

func definitionName(cat *catalog.Catalog, id catalog.ID) string {
	if d := cat.Get(id); d != nil {
		return d.Name
	}
	return ""
}

func placedData(cat *catalog.Catalog, pl placement.Placed) PlacedData {
	return PlacedData{
		ID:       pl.ID,
		Name:     definitionName(cat, pl.Def),
		Position: pl.Position,
		Yaw:      pl.Yaw,
	}
}

func pendingData(cat *catalog.Catalog, p placement.Pending) PendingData {
	return PendingData{
		ID:       p.ID,
		Name:     definitionName(cat, p.Def),
		Position: p.Position,
		Rotation: [4]float64{p.Rotation.V[0], p.Rotation.V[1], p.Rotation.V[2], p.Rotation.W},
		Yaw:      p.TargetYaw,
		Snapped:  p.Snapped,
		Vertical: p.VerticalOffset,
		Depth:    p.DepthOffset,
	}
}
