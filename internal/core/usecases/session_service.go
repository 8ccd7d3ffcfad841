package usecases

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/paulmach/orb"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/plotperfect/plotmap/internal/core/alignment"
	"github.com/plotperfect/plotmap/internal/core/domain"
	"github.com/plotperfect/plotmap/internal/pkg/geospatial"
	"github.com/plotperfect/plotmap/internal/pkg/metrics"
	"github.com/plotperfect/plotmap/internal/pkg/telemetry"
)

// SessionOptions tunes SessionService.
type SessionOptions struct {
	DefaultZoom float64
	IdleTimeout time.Duration
	// FitPadding grows fit bounds by this many meters on each side.
	FitPadding float64
}

// CornerEdit changes one coordinate of one raw corner.
type CornerEdit struct {
	Index int            `json:"index"`
	Axis  alignment.Axis `json:"axis"`
	Value float64        `json:"value"`
}

// MarkerMove drops one marker at a new position.
type MarkerMove struct {
	Role     int       `json:"role"`
	Position orb.Point `json:"position"`
}

// SessionUpdate is a batch of edits applied atomically to a session.
// Corner edits and drags run before scale and rotation, so a batch may
// reset and then re-apply an adjustment.
type SessionUpdate struct {
	ImageRef *string     `json:"image_ref,omitempty"`
	Zoom     *float64    `json:"zoom,omitempty"`
	Corners  []orb.Point `json:"corners,omitempty"`
	Corner   *CornerEdit `json:"corner,omitempty"`
	Markers  []orb.Point `json:"markers,omitempty"`
	Marker   *MarkerMove `json:"marker,omitempty"`
	FlipH    *bool       `json:"flip_h,omitempty"`
	FlipV    *bool       `json:"flip_v,omitempty"`
	Scale    *float64    `json:"scale,omitempty"`
	Rotation *float64    `json:"rotation,omitempty"`
	Opacity  *float64    `json:"opacity,omitempty"`
}

// SessionView is the client-facing snapshot of a session.
type SessionView struct {
	ID           string               `json:"id"`
	ProjectID    string               `json:"project_id"`
	State        alignment.State      `json:"state"`
	Zoom         float64              `json:"zoom"`
	FinalCorners domain.Corners       `json:"final_corners"`
	Markers      []alignment.Marker   `json:"markers"`
	ImageURL     string               `json:"image_url"`
	FitBounds    [][]float64          `json:"fit_bounds"`
	EdgeLengths  []float64            `json:"edge_lengths_m"`
	Ops          []alignment.RenderOp `json:"ops"`
}

// MapView is the read-only overlay shown to viewers.
type MapView struct {
	Config    *domain.MapConfig    `json:"config"`
	Corners   domain.Corners       `json:"corners"`
	ImageURL  string               `json:"image_url"`
	FitBounds [][]float64          `json:"fit_bounds"`
	Ops       []alignment.RenderOp `json:"ops"`
}

type session struct {
	id        string
	projectID string
	images    *alignment.LatestResolver

	mu       sync.Mutex
	ctrl     *alignment.Controller
	zoom     float64
	rendered alignment.RenderState
	lastUsed time.Time
}

// SessionService runs alignment editing sessions. Each session owns an
// alignment.Controller; edits are serialised per session.
type SessionService struct {
	maps   *MapConfigService
	images *ImageService
	opts   SessionOptions
	now    func() time.Time

	mu       sync.RWMutex
	sessions map[string]*session
}

// NewSessionService creates a new SessionService.
func NewSessionService(maps *MapConfigService, images *ImageService, opts SessionOptions) *SessionService {
	if opts.DefaultZoom <= 0 {
		opts.DefaultZoom = geospatial.DefaultZoom
	}
	if opts.IdleTimeout <= 0 {
		opts.IdleTimeout = 30 * time.Minute
	}
	return &SessionService{
		maps:     maps,
		images:   images,
		opts:     opts,
		now:      time.Now,
		sessions: make(map[string]*session),
	}
}

// View returns the overlay as a viewer sees it, without opening a session.
func (s *SessionService) View(ctx context.Context, projectID string) (*MapView, error) {
	cfg, err := s.maps.Load(ctx, projectID)
	if err != nil {
		return nil, err
	}
	ctrl := alignment.NewController(*cfg, nil)

	res, err := s.images.ResolveOrPlaceholder(ctx, cfg.ImageRef)
	if err != nil {
		return nil, err
	}
	// Viewers never release, so local handles here rely on expiry.
	state := alignment.RenderState{ImageURL: res.URL, Corners: ctrl.Final(), Opacity: cfg.Opacity}
	return &MapView{
		Config:    cfg,
		Corners:   ctrl.Final(),
		ImageURL:  res.URL,
		FitBounds: s.fitBounds(ctrl.Bounds()),
		Ops:       alignment.Reconcile(alignment.RenderState{}, state),
	}, nil
}

// Open starts an editing session seeded from the project's current config.
func (s *SessionService) Open(ctx context.Context, projectID string, zoom float64) (*SessionView, error) {
	cfg, err := s.maps.Load(ctx, projectID)
	if err != nil {
		return nil, err
	}
	if zoom <= 0 {
		zoom = s.opts.DefaultZoom
	}

	sess := &session{
		id:        uuid.NewString(),
		projectID: projectID,
		images:    alignment.NewLatestResolver(s.images.ResolveOrPlaceholder),
		ctrl:      alignment.NewController(*cfg, geospatial.NewWebMercator(zoom)),
		zoom:      zoom,
		lastUsed:  s.now(),
	}
	if _, _, err := sess.images.Resolve(ctx, cfg.ImageRef); err != nil {
		sess.images.Close()
		return nil, err
	}

	s.mu.Lock()
	s.sessions[sess.id] = sess
	s.mu.Unlock()
	metrics.ActiveSessions.Inc()

	sess.mu.Lock()
	defer sess.mu.Unlock()
	return s.render(sess), nil
}

// Get returns the session with a full redraw in Ops. An image URL close
// to expiry is re-resolved first.
func (s *SessionService) Get(ctx context.Context, id string) (*SessionView, error) {
	sess, err := s.lookup(id)
	if err != nil {
		return nil, err
	}
	if err := s.refresh(ctx, sess); err != nil {
		return nil, err
	}

	sess.mu.Lock()
	defer sess.mu.Unlock()
	view := s.snapshot(sess)
	view.Ops = alignment.Reconcile(alignment.RenderState{}, s.renderState(sess))
	return view, nil
}

// Apply runs an update against the session. Either every edit applies or
// none does. Edits take effect before the image is resolved, so when
// resolution is cancelled the error comes back with a view of the edited
// session.
func (s *SessionService) Apply(ctx context.Context, id string, upd SessionUpdate) (*SessionView, error) {
	sess, err := s.lookup(id)
	if err != nil {
		return nil, err
	}

	sess.mu.Lock()
	next := sess.ctrl.Clone()
	zoom := sess.zoom
	if err := applyUpdate(next, &zoom, upd); err != nil {
		sess.mu.Unlock()
		return nil, err
	}
	sess.ctrl = next
	sess.zoom = zoom
	sess.lastUsed = s.now()
	var pending *alignment.Pending
	if upd.ImageRef != nil {
		pending = sess.images.Begin(ctx, next.State().ImageRef)
	} else {
		pending = s.beginRefreshLocked(ctx, sess)
	}
	sess.mu.Unlock()

	// Await outside the lock so a newer image choice can supersede this one.
	var resolveErr error
	if pending != nil {
		_, _, resolveErr = pending.Await()
	}

	sess.mu.Lock()
	defer sess.mu.Unlock()
	return s.render(sess), resolveErr
}

// Commit bakes the session's adjustment into its corners and saves the
// result. When saving fails the session is left untouched so the caller
// can retry.
func (s *SessionService) Commit(ctx context.Context, id string) (*SessionView, *domain.MapConfig, error) {
	sess, err := s.lookup(id)
	if err != nil {
		return nil, nil, err
	}
	ctx, span := telemetry.Tracer().Start(ctx, telemetry.SpanSessionCommit, trace.WithAttributes(
		attribute.String(telemetry.AttrSessionID, id),
		attribute.String(telemetry.AttrProjectID, sess.projectID),
	))
	defer span.End()

	if err := s.refresh(ctx, sess); err != nil {
		return nil, nil, err
	}

	sess.mu.Lock()
	defer sess.mu.Unlock()

	next := sess.ctrl.Clone()
	cfg := next.Commit(sess.projectID)
	err = s.maps.Save(ctx, &cfg)
	metrics.AlignmentCommits.WithLabelValues(metrics.Outcome(err)).Inc()
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, nil, err
	}

	sess.ctrl = next
	sess.lastUsed = s.now()
	return s.render(sess), &cfg, nil
}

// Close ends a session and releases its image handle.
func (s *SessionService) Close(id string) error {
	s.mu.Lock()
	sess, ok := s.sessions[id]
	delete(s.sessions, id)
	s.mu.Unlock()
	if !ok {
		return domain.ErrNotFound
	}
	sess.images.Close()
	metrics.ActiveSessions.Dec()
	return nil
}

// Sweep closes sessions idle for longer than the idle timeout and returns
// how many were closed.
func (s *SessionService) Sweep() int {
	cutoff := s.now().Add(-s.opts.IdleTimeout)

	s.mu.RLock()
	var stale []string
	for id, sess := range s.sessions {
		sess.mu.Lock()
		if sess.lastUsed.Before(cutoff) {
			stale = append(stale, id)
		}
		sess.mu.Unlock()
	}
	s.mu.RUnlock()

	closed := 0
	for _, id := range stale {
		if s.Close(id) == nil {
			closed++
		}
	}
	return closed
}

// RunSweeper calls Sweep every interval until ctx is done.
func (s *SessionService) RunSweeper(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.Sweep()
		}
	}
}

func (s *SessionService) lookup(id string) (*session, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	sess, ok := s.sessions[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return sess, nil
}

// refresh re-resolves the session image when its URL has gone stale.
func (s *SessionService) refresh(ctx context.Context, sess *session) error {
	sess.mu.Lock()
	pending := s.beginRefreshLocked(ctx, sess)
	sess.mu.Unlock()
	if pending == nil {
		return nil
	}
	_, _, err := pending.Await()
	return err
}

// beginRefreshLocked reserves a re-resolution of the current image ref, or
// returns nil when the applied URL is still fresh. The session lock must
// be held so the ref and the reservation agree.
func (s *SessionService) beginRefreshLocked(ctx context.Context, sess *session) *alignment.Pending {
	if !sess.images.Stale(s.now()) {
		return nil
	}
	return sess.images.Begin(ctx, sess.ctrl.State().ImageRef)
}

// render snapshots the session and advances its rendered state. The
// session lock must be held.
func (s *SessionService) render(sess *session) *SessionView {
	view := s.snapshot(sess)
	next := s.renderState(sess)
	view.Ops = alignment.Reconcile(sess.rendered, next)
	sess.rendered = next
	return view
}

func (s *SessionService) renderState(sess *session) alignment.RenderState {
	return alignment.RenderState{
		ImageURL: sess.images.Current().URL,
		Corners:  sess.ctrl.Final(),
		Opacity:  sess.ctrl.State().Opacity,
		Markers:  true,
	}
}

func (s *SessionService) snapshot(sess *session) *SessionView {
	final := sess.ctrl.Final()
	return &SessionView{
		ID:           sess.id,
		ProjectID:    sess.projectID,
		State:        sess.ctrl.State(),
		Zoom:         sess.zoom,
		FinalCorners: final,
		Markers:      sess.ctrl.Markers(),
		ImageURL:     sess.images.Current().URL,
		FitBounds:    s.fitBounds(sess.ctrl.Bounds()),
		EdgeLengths:  geospatial.EdgeLengths(final[:]...),
	}
}

func (s *SessionService) fitBounds(b orb.Bound) [][]float64 {
	if s.opts.FitPadding > 0 {
		b = geospatial.PadBound(b, s.opts.FitPadding)
	}
	return [][]float64{{b.Min.Lon(), b.Min.Lat()}, {b.Max.Lon(), b.Max.Lat()}}
}

func applyUpdate(c *alignment.Controller, zoom *float64, upd SessionUpdate) error {
	if upd.ImageRef != nil {
		if err := c.SetImage(*upd.ImageRef); err != nil {
			return err
		}
	}
	if upd.Zoom != nil {
		w := geospatial.NewWebMercator(*upd.Zoom)
		*zoom = w.Zoom
		c.SetProjector(w)
	}
	if upd.Corners != nil {
		if err := c.SetRawCorners(upd.Corners); err != nil {
			return err
		}
	}
	if upd.Corner != nil {
		if err := c.SetRawCorner(upd.Corner.Index, upd.Corner.Axis, upd.Corner.Value); err != nil {
			return err
		}
	}
	if upd.Markers != nil {
		if err := c.DragMarkers(upd.Markers); err != nil {
			return err
		}
	}
	if upd.Marker != nil {
		if err := c.DragMarker(upd.Marker.Role, upd.Marker.Position); err != nil {
			return err
		}
	}
	if upd.FlipH != nil {
		c.SetFlipHorizontal(*upd.FlipH)
	}
	if upd.FlipV != nil {
		c.SetFlipVertical(*upd.FlipV)
	}
	if upd.Scale != nil {
		if err := c.SetScale(*upd.Scale); err != nil {
			return err
		}
	}
	if upd.Rotation != nil {
		if err := c.SetRotation(*upd.Rotation); err != nil {
			return err
		}
	}
	if upd.Opacity != nil {
		if err := c.SetOpacity(*upd.Opacity); err != nil {
			return err
		}
	}
	return nil
}
