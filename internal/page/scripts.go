package page

// layoutScript probes bounding boxes and rendered-layout visibility for a
// selector list. Bad selectors are skipped, matching the soft-failure policy
// everywhere selectors are resolved.
const layoutScript = `
(selsJSON) => {
	const out = {};
	let sels = [];
	try { sels = JSON.parse(selsJSON) || []; } catch (e) { return out; }
	for (const sel of sels) {
		let el = null;
		try { el = document.querySelector(sel); } catch (e) { continue; }
		if (!el) continue;
		const rect = el.getBoundingClientRect();
		const style = window.getComputedStyle(el);
		out[sel] = {
			x: rect.x,
			y: rect.y,
			width: rect.width,
			height: rect.height,
			visible: style.display !== 'none' && style.visibility !== 'hidden' &&
				rect.width > 0 && rect.height > 0
		};
	}
	return out;
}`

// candidatesScript re-resolves selectors and snapshots outer HTML per match.
const candidatesScript = `
(selsJSON) => {
	const out = [];
	let sels = [];
	try { sels = JSON.parse(selsJSON) || []; } catch (e) { return out; }
	for (const sel of sels) {
		let el = null;
		try { el = document.querySelector(sel); } catch (e) { continue; }
		if (!el) continue;
		out.push({ selector: sel, markup: el.outerHTML });
	}
	return out;
}`
