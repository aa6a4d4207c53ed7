package tracing

// Span names.
const (
	SpanScan    = "citetrace.scan"
	SpanResolve = "citetrace.resolve"
	SpanReport  = "citetrace.report"
	SpanRun     = "citetrace.run"
)

// Span attribute keys.
const (
	AttrTarget     = "citetrace.target"
	AttrFiles      = "citetrace.files"
	AttrEntries    = "citetrace.entries"
	AttrReferences = "citetrace.references"
	AttrFormat     = "citetrace.format"
	AttrOutput     = "citetrace.output"
	AttrRefKind    = "citetrace.reference.kind"
	AttrExitCode   = "citetrace.exit_code"
)
