package overlay

// markerAttr tags every widget this package creates so the full set can be
// enumerated and torn down in one sweep.
const markerAttr = "data-adlens-overlay"

// renderScript renders one widget per resolvable ad. Selector failures are
// skipped inside the loop so one bad selector cannot abort the rest; the
// return value is the count actually rendered. Boxes are positioned in
// document coordinates (viewport rect plus scroll offsets).
const renderScript = `
(adsJSON) => {
	let ads = [];
	try { ads = JSON.parse(adsJSON) || []; } catch (e) { return 0; }
	let count = 0;
	for (const ad of ads) {
		let el = null;
		try { el = document.querySelector(ad.selector); } catch (e) { continue; }
		if (!el) continue;
		const rect = el.getBoundingClientRect();
		const box = document.createElement('div');
		box.setAttribute('` + markerAttr + `', '');
		box.style.cssText =
			'position:absolute;box-sizing:border-box;z-index:2147483646;' +
			'background:rgba(255,64,64,0.18);border:2px solid rgba(255,64,64,0.9);' +
			'font:13px/1.4 sans-serif;color:#fff;overflow:hidden;';
		box.style.left = (rect.left + window.scrollX) + 'px';
		box.style.top = (rect.top + window.scrollY) + 'px';
		box.style.width = rect.width + 'px';
		box.style.height = rect.height + 'px';

		const label = document.createElement('div');
		label.textContent = ad.description;
		label.style.cssText =
			'position:absolute;left:0;top:0;max-width:100%;padding:2px 22px 2px 6px;' +
			'background:rgba(200,32,32,0.92);white-space:nowrap;overflow:hidden;' +
			'text-overflow:ellipsis;';
		box.appendChild(label);

		const close = document.createElement('button');
		close.textContent = '×';
		close.setAttribute('aria-label', 'dismiss');
		close.style.cssText =
			'position:absolute;right:0;top:0;width:18px;height:18px;padding:0;' +
			'border:none;background:rgba(200,32,32,0.92);color:#fff;cursor:pointer;';
		close.addEventListener('click', () => box.remove());
		box.appendChild(close);

		document.body.appendChild(box);
		count++;
	}
	return count;
}`

// clearScript removes every marked widget. Running it twice, or on a page
// with none, is a no-op returning 0.
const clearScript = `
() => {
	const nodes = document.querySelectorAll('[` + markerAttr + `]');
	for (const n of nodes) n.remove();
	return nodes.length;
}`
