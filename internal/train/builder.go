package train

// CallbackBuilder assembles the training hook list in its required order:
// broadcast first (workers must agree on weights before any step), then
// metric averaging (values must be aggregated before anything records
// them), then schedules, then tracking, then file loggers.
//
// Callers add callbacks to named stages in any order; Build emits the
// stages in the fixed order above.
type CallbackBuilder struct {
	broadcast []Callback
	averaging []Callback
	schedule  []Callback
	tracking  []Callback
	loggers   []Callback
}

func NewCallbackBuilder() *CallbackBuilder {
	return &CallbackBuilder{}
}

func (b *CallbackBuilder) Broadcast(c Callback) *CallbackBuilder {
	b.broadcast = append(b.broadcast, c)
	return b
}

func (b *CallbackBuilder) MetricAveraging(c Callback) *CallbackBuilder {
	b.averaging = append(b.averaging, c)
	return b
}

func (b *CallbackBuilder) Schedule(c Callback) *CallbackBuilder {
	b.schedule = append(b.schedule, c)
	return b
}

func (b *CallbackBuilder) Tracking(c Callback) *CallbackBuilder {
	b.tracking = append(b.tracking, c)
	return b
}

func (b *CallbackBuilder) Logger(c Callback) *CallbackBuilder {
	b.loggers = append(b.loggers, c)
	return b
}

func (b *CallbackBuilder) Build() []Callback {
	out := make([]Callback, 0,
		len(b.broadcast)+len(b.averaging)+len(b.schedule)+len(b.tracking)+len(b.loggers))
	out = append(out, b.broadcast...)
	out = append(out, b.averaging...)
	out = append(out, b.schedule...)
	out = append(out, b.tracking...)
	out = append(out, b.loggers...)
	return out
}
