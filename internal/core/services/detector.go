package services

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/samjmc/dashchat/internal/core/domain"
	"github.com/samjmc/dashchat/internal/core/ports/driven"
	"github.com/samjmc/dashchat/internal/core/ports/driving"
	"github.com/samjmc/dashchat/internal/logger"
)

// Ensure DetectorService implements the interface.
var _ driving.ContextDetector = (*DetectorService)(nil)

// Detector timeouts and bounds.
const (
	// DefaultExtensionTimeout bounds the structured extension handshake and
	// queries.
	DefaultExtensionTimeout = 5 * time.Second

	// DefaultWindowTimeout bounds the cross-window data request.
	DefaultWindowTimeout = 2 * time.Second

	// MaxSampleRows bounds the per-worksheet summary-data sample.
	MaxSampleRows = 15

	// urlContextParam is the query parameter carrying a context blob.
	urlContextParam = "tableauData"
)

// Probe sources recorded on produced snapshots.
const (
	SourceURLParams = "url-params"
	SourceCache     = "cached"
	SourceExtension = "extension-api"
	SourceWindow    = "cross-window"
	SourceHeuristic = "heuristic"
	SourceNone      = "none"
)

// DetectorConfig tunes the probe cascade.
type DetectorConfig struct {
	// ExtensionTimeout bounds the structured extension tier.
	ExtensionTimeout time.Duration

	// WindowTimeout bounds the cross-window tier.
	WindowTimeout time.Duration
}

// probe is one detection strategy. Probes never block past their bound and
// never fail: misses are tagged Unavailable or TimedOut.
type probe struct {
	name string
	run  func(ctx context.Context, env *domain.Environment) domain.ProbeResult
}

// DetectorService produces best-effort dashboard context snapshots from an
// ordered cascade of probes. Cheap passive probes run first, then the
// structured extension tier, then cross-window messaging, then heuristic
// classification as a last resort. Every collaborator is optional: an absent
// capability simply skips its tier.
type DetectorService struct {
	bridge     driven.ExtensionBridge
	messenger  driven.WindowMessenger
	cache      driven.ContextCache
	classifier driven.Classifier
	cfg        DetectorConfig
}

// NewDetectorService creates a detector. Any collaborator may be nil.
func NewDetectorService(
	bridge driven.ExtensionBridge,
	messenger driven.WindowMessenger,
	cache driven.ContextCache,
	classifier driven.Classifier,
	cfg DetectorConfig,
) *DetectorService {
	if cfg.ExtensionTimeout <= 0 {
		cfg.ExtensionTimeout = DefaultExtensionTimeout
	}
	if cfg.WindowTimeout <= 0 {
		cfg.WindowTimeout = DefaultWindowTimeout
	}
	return &DetectorService{
		bridge:     bridge,
		messenger:  messenger,
		cache:      cache,
		classifier: classifier,
		cfg:        cfg,
	}
}

// Detect runs the cascade. It never returns an error and never blocks past
// the per-tier timeouts: the worst case is an empty snapshot whose
// IsEmbedded mirrors frame nesting.
func (d *DetectorService) Detect(ctx context.Context, env *domain.Environment) *domain.DashboardContext {
	logger.Section("Context Detection")
	if env == nil {
		env = &domain.Environment{}
	}

	// Structured tiers need a hosting frame: a standalone page has no
	// parent window or extension host, and a non-embedded snapshot must
	// never carry filters, parameters or worksheets.
	var cascade []probe
	if env.FrameNested {
		cascade = []probe{
			{name: SourceURLParams, run: d.probeURLParams},
			{name: SourceCache, run: d.probeCache},
			{name: SourceExtension, run: d.probeExtension},
			{name: SourceWindow, run: d.probeWindow},
		}
	}
	cascade = append(cascade, probe{name: SourceHeuristic, run: d.probeHeuristic})

	for _, p := range cascade {
		result := p.run(ctx, env)
		logger.Debug("Probe %s: %s", p.name, result.Outcome)
		if result.Outcome == domain.ProbeSuccess {
			snapshot := result.Context
			snapshot.IsEmbedded = env.FrameNested
			snapshot.Source = p.name
			return snapshot
		}
	}

	logger.Info("No probe produced data, returning empty context")
	return &domain.DashboardContext{
		IsEmbedded: env.FrameNested,
		Source:     SourceNone,
	}
}

// probeURLParams looks for a context blob in the page URL query parameters.
func (d *DetectorService) probeURLParams(_ context.Context, env *domain.Environment) domain.ProbeResult {
	blob, ok := env.QueryParams[urlContextParam]
	if !ok || blob == "" {
		return domain.Unavailable()
	}

	var snapshot domain.DashboardContext
	if err := json.Unmarshal([]byte(blob), &snapshot); err != nil {
		logger.Warn("Malformed %s blob: %v", urlContextParam, err)
		return domain.Unavailable()
	}
	if snapshot.Empty() {
		return domain.Unavailable()
	}
	return domain.Success(&snapshot)
}

// probeCache looks for a previously pushed context snapshot for the session.
func (d *DetectorService) probeCache(ctx context.Context, env *domain.Environment) domain.ProbeResult {
	if d.cache == nil || env.SessionKey == "" {
		return domain.Unavailable()
	}

	snapshot, err := d.cache.Get(ctx, env.SessionKey)
	if err != nil || snapshot == nil || snapshot.Empty() {
		return domain.Unavailable()
	}
	return domain.Success(snapshot)
}

// probeExtension queries the structured extension bridge: the highest
// fidelity tier. Per-worksheet query failures are recorded on the worksheet
// entry and never abort the rest; partial success is the norm.
func (d *DetectorService) probeExtension(ctx context.Context, _ *domain.Environment) domain.ProbeResult {
	if d.bridge == nil {
		return domain.Unavailable()
	}

	ctx, cancel := context.WithTimeout(ctx, d.cfg.ExtensionTimeout)
	defer cancel()

	if err := d.bridge.Initialize(ctx); err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return domain.TimedOut()
		}
		logger.Debug("Extension initialise failed: %v", err)
		return domain.Unavailable()
	}

	snapshot := &domain.DashboardContext{}

	if name, err := d.bridge.DashboardName(ctx); err == nil {
		snapshot.Title = name
	}

	names, err := d.bridge.Worksheets(ctx)
	if err != nil {
		logger.Warn("Worksheet listing failed: %v", err)
	}
	if len(names) > 0 {
		snapshot.ActiveSheet = names[0]
	}

	for _, name := range names {
		ws := domain.WorksheetSummary{Name: name}

		fields, rows, total, err := d.bridge.SummaryData(ctx, name, MaxSampleRows)
		if err != nil {
			logger.Warn("Summary data failed for %q: %v", name, err)
			ws.Err = true
		} else {
			ws.Fields = fields
			ws.SampleRows = rows
			ws.RowCount = total
		}
		snapshot.Worksheets = append(snapshot.Worksheets, ws)

		filters, err := d.bridge.Filters(ctx, name)
		if err != nil {
			logger.Warn("Filter query failed for %q: %v", name, err)
			continue
		}
		snapshot.Filters = append(snapshot.Filters, filters...)
	}

	params, err := d.bridge.Parameters(ctx)
	if err != nil {
		logger.Warn("Parameter query failed: %v", err)
	} else {
		snapshot.Parameters = params
	}

	return domain.Success(snapshot)
}

// probeWindow asks the hosting window for a context snapshot over typed
// messaging. Silence within the bound is "no data", not an error.
func (d *DetectorService) probeWindow(ctx context.Context, _ *domain.Environment) domain.ProbeResult {
	if d.messenger == nil {
		return domain.Unavailable()
	}

	ctx, cancel := context.WithTimeout(ctx, d.cfg.WindowTimeout)
	defer cancel()

	raw, err := d.messenger.Request(ctx, driven.MsgRequestDashboardData, map[string]any{
		"source": "dashchat-widget",
	})
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return domain.TimedOut()
		}
		return domain.Unavailable()
	}

	var payload driven.DashboardDataPayload
	if err := json.Unmarshal(raw, &payload); err != nil {
		logger.Warn("Malformed dashboard data payload: %v", err)
		return domain.Unavailable()
	}

	snapshot := &domain.DashboardContext{Title: payload.Title}
	for _, f := range payload.Filters {
		snapshot.Filters = append(snapshot.Filters, domain.FilterState{
			Field:         f.Field,
			AppliedValues: f.AppliedValues,
			Worksheet:     f.Worksheet,
		})
	}
	for _, ws := range payload.Worksheets {
		snapshot.Worksheets = append(snapshot.Worksheets, domain.WorksheetSummary{
			Name:   ws.Name,
			Fields: ws.Fields,
		})
	}
	for _, p := range payload.Parameters {
		snapshot.Parameters = append(snapshot.Parameters, domain.ParameterState{
			Name:         p.Name,
			CurrentValue: p.CurrentValue,
		})
	}

	if snapshot.Empty() {
		return domain.Unavailable()
	}
	return domain.Success(snapshot)
}

// probeHeuristic classifies the page content: the lowest fidelity tier. It
// only ever yields a coarse classification, never structured data.
func (d *DetectorService) probeHeuristic(_ context.Context, env *domain.Environment) domain.ProbeResult {
	if d.classifier == nil {
		return domain.Unavailable()
	}

	classification := d.classifier.Classify(env)
	if classification == nil {
		return domain.Unavailable()
	}

	return domain.Success(&domain.DashboardContext{
		Title:          env.PageTitle,
		Classification: classification,
	})
}
