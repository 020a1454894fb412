package dashboard

const dashboardHTML = `<!DOCTYPE html>
<html lang="en">
<head>
    <meta charset="UTF-8">
    <meta name="viewport" content="width=device-width, initial-scale=1.0">
    <title>NewsGoat Sentiment Dashboard</title>
    <style>
        * { margin: 0; padding: 0; box-sizing: border-box; }
        body { font-family: 'Inter', -apple-system, system-ui, sans-serif; background: #0f172a; color: #e2e8f0; min-height: 100vh; }
        .header { background: linear-gradient(135deg, #1e293b, #334155); padding: 1.5rem 2rem; border-bottom: 1px solid #475569; display: flex; justify-content: space-between; align-items: center; gap: 1rem; }
        .header h1 { font-size: 1.5rem; background: linear-gradient(135deg, #38bdf8, #818cf8); background-clip: text; -webkit-background-clip: text; -webkit-text-fill-color: transparent; }
        select, button { background: #0f172a; color: #e2e8f0; border: 1px solid #475569; border-radius: 8px; padding: 0.5rem 0.75rem; font-size: 0.875rem; max-width: 28rem; }
        button { cursor: pointer; border-color: #38bdf8; }
        .grid { display: grid; grid-template-columns: repeat(auto-fit, minmax(320px, 1fr)); gap: 1rem; padding: 2rem; }
        .card { background: #1e293b; border: 1px solid #334155; border-radius: 12px; padding: 1.5rem; }
        .card .label { font-size: 0.75rem; text-transform: uppercase; letter-spacing: 0.05em; color: #94a3b8; margin-bottom: 0.75rem; }
        .card .value { font-size: 1.25rem; font-weight: 700; color: #f1f5f9; }
        .card .sub { font-size: 0.875rem; color: #64748b; margin-top: 0.5rem; }
        .card.success { border-color: #4ade80; }
        .card.error { border-color: #f87171; }
        .card.accent { border-color: #38bdf8; }
        .bar { display: flex; align-items: center; gap: 0.5rem; margin: 0.25rem 0; font-size: 0.875rem; }
        .bar .fill { height: 0.75rem; border-radius: 4px; background: #38bdf8; }
        .bar .fill.POSITIVE { background: #4ade80; }
        .bar .fill.NEGATIVE { background: #f87171; }
        .cloud span { display: inline-block; margin: 0.15rem 0.35rem; color: #818cf8; }
        .row { display: flex; gap: 0.5rem; flex-wrap: wrap; margin-bottom: 0.75rem; }
        .footer { text-align: center; padding: 1rem; color: #475569; font-size: 0.75rem; }
    </style>
</head>
<body>
    <div class="header">
        <h1>NewsGoat Sentiment Dashboard</h1>
        <select id="dataset"><option value="">Select a dataset</option></select>
    </div>
    <div class="grid">
        <div class="card accent"><div class="label">Sentiment Distribution</div><div id="distribution" class="sub">Load a dataset to begin.</div></div>
        <div class="card success"><div class="label">Most Positive Article</div><div class="value" id="most_positive">-</div><div class="sub" id="most_positive_sub"></div></div>
        <div class="card error"><div class="label">Most Negative Article</div><div class="value" id="most_negative">-</div><div class="sub" id="most_negative_sub"></div></div>
        <div class="card">
            <div class="label">Word Cloud</div>
            <div class="row"><select id="cloud_article"></select></div>
            <div class="cloud" id="cloud"></div>
        </div>
        <div class="card">
            <div class="label">Article Similarity</div>
            <div class="row"><select id="sim_a"></select><select id="sim_b"></select></div>
            <div class="value" id="similarity"></div>
        </div>
        <div class="card">
            <div class="label">Summary</div>
            <div class="row"><select id="sum_article"></select><button id="summarize">Summarize</button></div>
            <div class="sub" id="summary"></div>
        </div>
    </div>
    <div class="footer">NewsGoat</div>
    <script>
        const $ = id => document.getElementById(id);
        async function api(path, opts) {
            const r = await fetch(path, Object.assign({credentials: 'same-origin'}, opts || {}));
            const d = await r.json();
            if (!r.ok) throw new Error(d.error || r.statusText);
            return d;
        }
        function fillSelect(el, articles) {
            el.innerHTML = '';
            articles.forEach(a => { const o = document.createElement('option'); o.value = a.index; o.textContent = a.title; el.appendChild(o); });
        }
        function showMost(id, a) {
            $(id).textContent = a ? a.title : '-';
            $(id + '_sub').textContent = a ? 'Confidence ' + a.confidence.toFixed(2) : '';
        }
        function render(ov) {
            $('distribution').innerHTML = ov.distribution.map(s =>
                '<div class="bar"><div class="fill ' + s.label + '" style="width:' + (s.percent * 2) + 'px"></div>' + s.label + ' ' + s.percent.toFixed(1) + '%</div>').join('');
            showMost('most_positive', ov.most_positive);
            showMost('most_negative', ov.most_negative);
            ['cloud_article', 'sim_a', 'sim_b', 'sum_article'].forEach(id => fillSelect($(id), ov.articles));
            $('summary').textContent = '';
            cloud(); similarity();
        }
        async function cloud() {
            const v = $('cloud_article').value;
            if (v === '') { $('cloud').innerHTML = ''; return; }
            try {
                const d = await api('/api/wordcloud?article=' + v);
                $('cloud').innerHTML = d.words.map(w => '<span style="font-size:' + (0.75 + w.weight * 1.5) + 'rem">' + w.word + '</span>').join('');
            } catch (e) { $('cloud').textContent = e.message; }
        }
        async function similarity() {
            const a = $('sim_a').value, b = $('sim_b').value;
            if (a === '' || b === '') { $('similarity').textContent = ''; return; }
            try {
                const d = await api('/api/similarity?a=' + a + '&b=' + b);
                $('similarity').textContent = d.display;
            } catch (e) { $('similarity').textContent = e.message; }
        }
        async function summarize() {
            const v = $('sum_article').value;
            if (v === '') return;
            $('summary').textContent = 'Summarizing...';
            try {
                const d = await api('/api/summary?article=' + v);
                $('summary').textContent = d.summary;
            } catch (e) { $('summary').textContent = e.message; }
        }
        async function init() {
            try {
                const list = await api('/api/datasets');
                list.forEach(ds => { const o = document.createElement('option'); o.value = ds.file; o.textContent = ds.label; $('dataset').appendChild(o); });
            } catch (e) { $('distribution').textContent = e.message; }
        }
        $('dataset').onchange = async () => {
            const file = $('dataset').value;
            if (!file) return;
            try {
                render(await api('/api/session/load', {method: 'POST', headers: {'Content-Type': 'application/json'}, body: JSON.stringify({file})}));
            } catch (e) { $('distribution').textContent = e.message; }
        };
        $('cloud_article').onchange = cloud;
        $('sim_a').onchange = similarity;
        $('sim_b').onchange = similarity;
        $('summarize').onclick = summarize;
        init();
    </script>
</body>
</html>`
