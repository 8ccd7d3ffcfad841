package telemetry

// Span names used for instrumentation.
const (
	SpanMapConfigLoad   = "mapconfig.load"
	SpanMapConfigSave   = "mapconfig.save"
	SpanMapConfigDelete = "mapconfig.delete"
	SpanImageResolve    = "images.resolve"
	SpanImageUpload     = "images.upload"
	SpanSessionCommit   = "alignment.commit"
)

// Span attribute keys.
const (
	AttrProjectID   = "plotmap.project_id"
	AttrSessionID   = "plotmap.session_id"
	AttrImageScheme = "plotmap.image.scheme"
)

// TracerName identifies spans emitted by this module.
const TracerName = "github.com/plotperfect/plotmap"
