package http

import (
	"html/template"
	"log/slog"
	"net/http"

	"pollpulse/internal/trend"
)

// dashboardData feeds the inline dashboard template.
type dashboardData struct {
	Version     string
	DefaultSpan int
	MinSpan     int
	MaxSpan     int
	RawAverage  bool
}

// ServeDashboard serves the single-page approval dashboard. The page is a
// plain-HTML client of the JSON API: everything it shows comes from the same
// endpoints any other consumer would call.
func ServeDashboard(version string, defaultSpan int, rawAverage bool, logger *slog.Logger) http.HandlerFunc {
	data := dashboardData{
		Version:     version,
		DefaultSpan: defaultSpan,
		MinSpan:     trend.MinSpan,
		MaxSpan:     trend.MaxSpan,
		RawAverage:  rawAverage,
	}

	return func(w http.ResponseWriter, r *http.Request) {
		// Set security headers
		w.Header().Set("X-Content-Type-Options", "nosniff")
		w.Header().Set("X-Frame-Options", "DENY")
		w.Header().Set("Content-Type", "text/html; charset=utf-8")

		if err := dashboardPage.Execute(w, data); err != nil {
			logger.ErrorContext(r.Context(), "failed to render dashboard",
				slog.String("error", err.Error()))
		}
	}
}

var dashboardPage = template.Must(template.New("dashboard").Parse(`<!DOCTYPE html>
<html>
<head>
    <meta charset="utf-8">
    <title>Poll Pulse</title>
    <style>
        body { font-family: Arial, sans-serif; margin: 40px; max-width: 1060px; }
        h1 { margin-bottom: 4px; }
        .version { font-size: 0.5em; color: #6c757d; }
        .headline { font-size: 1.3em; padding: 10px 0; }
        .controls { padding: 10px; background-color: #f8f9fa; border-radius: 4px; margin-bottom: 10px; }
        .controls label { margin-right: 14px; }
        .controls input[type=number] { width: 60px; }
        #chart { max-width: 100%; border: 1px solid #dee2e6; border-radius: 4px; }
        .actions { margin: 10px 0; }
        .actions button { margin-right: 6px; }
        #pollster-list label { display: inline-block; margin: 2px 14px 2px 0; }
        .footer { margin-top: 16px; color: #6c757d; font-size: 0.9em; }
    </style>
</head>
<body>
    <h1>Poll Pulse <span class="version">v{{.Version}}</span></h1>
    <div class="headline" id="headline">&mdash;</div>

    <div class="controls">
        <label>Span <input type="number" id="span" min="{{.MinSpan}}" max="{{.MaxSpan}}" value="{{.DefaultSpan}}"></label>
        <label>Metric
            <select id="metric">
                <option value="both">Approve + Disapprove</option>
                <option value="approve">Approve</option>
                <option value="disapprove">Disapprove</option>
            </select>
        </label>
        <label><input type="checkbox" id="raw"{{if .RawAverage}} checked{{end}}> Raw average</label>
        <a id="export" href="/api/trend/export.csv">Download CSV</a>
    </div>

    <img id="chart" alt="Approval trend chart">

    <div class="actions">
        <button id="select-all">Select all</button>
        <button id="deselect-all">Deselect all</button>
        <button id="curated">Curated only</button>
    </div>
    <div id="pollster-list"></div>

    <div class="footer">
        <span id="dataset-status">loading&hellip;</span> &middot;
        source updated <span id="last-updated">unknown</span>
    </div>

    <script>
    (function () {
        var spanInput = document.getElementById('span');
        var metricSel = document.getElementById('metric');
        var rawCheck = document.getElementById('raw');

        function query() {
            return '?span=' + spanInput.value +
                '&metric=' + metricSel.value +
                '&raw_average=' + rawCheck.checked;
        }

        function refreshChart() {
            document.getElementById('chart').src =
                '/api/trend/chart.png' + query() + '&ts=' + Date.now();
            var href = '/api/trend/export.csv?span=' + spanInput.value;
            if (metricSel.value !== 'both') {
                href += '&metric=' + metricSel.value;
            }
            document.getElementById('export').href = href;
        }

        function refreshHeadline() {
            fetch('/api/trend/headline?span=' + spanInput.value)
                .then(function (res) { return res.json(); })
                .then(function (body) {
                    var h = body.data;
                    var parts = [];
                    if (h.approve) {
                        parts.push('Approve ' + h.approve.value.toFixed(1) + '%');
                    }
                    if (h.disapprove) {
                        parts.push('Disapprove ' + h.disapprove.value.toFixed(1) + '%');
                    }
                    var text = parts.length ? parts.join(' / ') : 'No data for current selection';
                    if (h.approve) {
                        text += ' (as of ' + h.approve.date + ')';
                    }
                    document.getElementById('headline').textContent = text;
                })
                .catch(function () {
                    document.getElementById('headline').textContent = 'No data for current selection';
                });
        }

        function renderPollsters(view) {
            var list = document.getElementById('pollster-list');
            list.innerHTML = '';
            view.pollsters.forEach(function (p) {
                var label = document.createElement('label');
                var box = document.createElement('input');
                box.type = 'checkbox';
                box.checked = p.selected;
                box.addEventListener('change', function () {
                    setPollster(p.name, box.checked);
                });
                label.appendChild(box);
                label.appendChild(document.createTextNode(' ' + p.name));
                list.appendChild(label);
            });
        }

        function refreshSelection() {
            fetch('/api/selection')
                .then(function (res) { return res.json(); })
                .then(function (body) { renderPollsters(body.data); });
        }

        function refreshAll() {
            refreshChart();
            refreshHeadline();
            refreshSelection();
        }

        function setPollster(name, selected) {
            fetch('/api/selection/pollsters/' + encodeURIComponent(name), {
                method: 'PUT',
                headers: { 'Content-Type': 'application/json' },
                body: JSON.stringify({ selected: selected })
            }).then(refreshAll);
        }

        function bulk(action) {
            fetch('/api/selection/' + action, { method: 'POST' }).then(refreshAll);
        }

        document.getElementById('select-all').addEventListener('click', function () { bulk('select-all'); });
        document.getElementById('deselect-all').addEventListener('click', function () { bulk('deselect-all'); });
        document.getElementById('curated').addEventListener('click', function () { bulk('curated'); });
        spanInput.addEventListener('change', refreshAll);
        metricSel.addEventListener('change', refreshChart);
        rawCheck.addEventListener('change', refreshChart);

        fetch('/api/dataset/status')
            .then(function (res) { return res.json(); })
            .then(function (body) {
                var st = body.data;
                document.getElementById('dataset-status').textContent = st.loaded
                    ? st.rows + ' polls from ' + st.pollsters + ' pollsters'
                    : 'dataset not loaded';
            });

        fetch('/api/meta/last-updated')
            .then(function (res) { return res.json(); })
            .then(function (body) {
                document.getElementById('last-updated').textContent = body.data.last_updated;
            });

        try {
            var proto = location.protocol === 'https:' ? 'wss://' : 'ws://';
            var ws = new WebSocket(proto + location.host + '/ws');
            ws.onmessage = function (evt) {
                var msg = JSON.parse(evt.data);
                if (msg.type === 'data_update' || msg.type === 'refresh') {
                    refreshAll();
                }
            };
            setInterval(function () {
                if (ws.readyState === WebSocket.OPEN) {
                    ws.send(JSON.stringify({type: 'heartbeat'}));
                }
            }, 45000);
        } catch (e) {
            // The dashboard works without live refresh.
        }

        refreshAll();
    })();
    </script>
</body>
</html>
`))
