// Package trend turns raw poll observations into the smoothed approval
// series the dashboard charts. It is the computational core of the
// application and stays deliberately free of I/O: everything here is a pure
// function of (dataset, selection, span), recomputed in full on every call.
//
// # Pipeline
//
// Three stages, each usable on its own:
//
//  1. Aggregate: filter to the selected pollsters, group by calendar day,
//     average the metric. Days without contributions are absent, never
//     zero-filled.
//  2. Smooth: exponential smoothing with alpha = 2/(span+1), seeded with the
//     first raw value. Output dates mirror input dates exactly.
//  3. Compose: assemble the chart-ready set of per-pollster raw series,
//     combined average and trend lines, plus the headline pair.
//
// # Usage
//
//	set, err := trend.Compose(dataset, manager.SelectedSet(), trend.ComposeOptions{
//	    Span:              7,
//	    IncludeRawAverage: true,
//	})
//
// Spans outside [MinSpan, MaxSpan] are rejected with ErrSpanOutOfRange;
// callers decide the span, the package never clamps it. An empty selection
// or dataset composes to an empty set, which is valid output.
package trend
