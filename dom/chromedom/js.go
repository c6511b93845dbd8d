package chromedom

// Functions below run with the element bound to this.

const jsText = `function() { return this.textContent || ""; }`

const jsAttr = `function(k) {
	return this.hasAttribute(k) ? {ok: true, v: this.getAttribute(k)} : {ok: false, v: ""};
}`

const jsMatches = `function(sel) { return this.matches(sel); }`

const jsTagName = `function() { return this.tagName.toLowerCase(); }`

const jsValue = `function() {
	const tag = this.tagName;
	if (tag !== "INPUT" && tag !== "SELECT" && tag !== "TEXTAREA" && tag !== "OPTION") {
		throw new Error("<" + tag.toLowerCase() + "> is not a form control");
	}
	return this.value;
}`

const jsSetValue = `function(v) {
	if (this.disabled) throw new Error("<" + this.tagName.toLowerCase() + "> is disabled");
	const norm = s => s.replace(/\s+/g, " ").trim();
	switch (this.tagName) {
	case "SELECT": {
		const opts = Array.from(this.options);
		const o = opts.find(o => norm(o.textContent) === v) || opts.find(o => o.value === v);
		if (!o) return false;
		o.selected = true;
		break;
	}
	case "INPUT": {
		const t = (this.getAttribute("type") || "text").toLowerCase();
		if (["checkbox", "radio", "submit", "button", "image", "reset", "file"].includes(t)) {
			throw new Error("cannot fill in a " + t + " input");
		}
		this.focus();
		this.value = v;
		break;
	}
	case "TEXTAREA":
		this.focus();
		this.value = v;
		break;
	default:
		throw new Error("<" + this.tagName.toLowerCase() + "> is not a form control");
	}
	this.dispatchEvent(new Event("input", {bubbles: true}));
	this.dispatchEvent(new Event("change", {bubbles: true}));
	return true;
}`

const jsChecked = `function() { return !!this.checked; }`

const jsSetChecked = `function(c) {
	const t = (this.getAttribute("type") || "").toLowerCase();
	if (this.tagName !== "INPUT" || (t !== "checkbox" && t !== "radio")) {
		throw new Error("<" + this.tagName.toLowerCase() + "> is not a checkbox or radio button");
	}
	if (this.disabled) throw new Error("<input> is disabled");
	if (this.checked === c) return;
	this.checked = c;
	this.dispatchEvent(new Event("input", {bubbles: true}));
	this.dispatchEvent(new Event("change", {bubbles: true}));
}`

const jsMultiple = `function() { return this.tagName === "SELECT" && this.multiple; }`

const jsSelected = `function() { return !!this.selected; }`

const jsSetSelected = `function(s) {
	if (this.selected === s) return;
	this.selected = s;
	const sel = this.closest("select");
	if (sel) sel.dispatchEvent(new Event("change", {bubbles: true}));
}`

// jsNavigates marks the window and reports whether clicking this element
// leaves the page.
const jsNavigates = `function() {
	const t = (this.getAttribute("type") || "").toLowerCase();
	let nav = false;
	if (this.tagName === "A" && this.hasAttribute("href")) nav = true;
	if (this.tagName === "INPUT" && (t === "submit" || t === "image") && this.form) nav = true;
	if (this.tagName === "BUTTON" && (t === "" || t === "submit") && this.form) nav = true;
	if (nav) window.__dominoPage = true;
	return nav;
}`

const jsLeftPage = `!window.__dominoPage`

// jsLocate finds a form field below this by id, name, placeholder, then
// label text (exact before substring). Arguments: locator, type hint,
// exact-only.
const jsLocate = `function(locator, want, exactOnly) {
	const kind = el => el.tagName === "INPUT" ? (el.getAttribute("type") || "text").toLowerCase() : el.tagName.toLowerCase();
	const isField = el => {
		if (el.tagName === "TEXTAREA" || el.tagName === "SELECT") return true;
		if (el.tagName !== "INPUT") return false;
		return !["hidden", "submit", "button", "image", "reset"].includes(kind(el));
	};
	const fields = Array.from(this.querySelectorAll("input, select, textarea"))
		.filter(el => isField(el) && (!want || kind(el) === want));
	if (fields.length === 0) return null;

	for (const key of ["id", "name", "placeholder"]) {
		const f = fields.find(el => el.getAttribute(key) === locator);
		if (f) return f;
	}

	const norm = s => s.replace(/\s+/g, " ").trim();
	const target = l => {
		const id = l.getAttribute("for");
		if (id) return document.getElementById(id);
		return Array.from(l.querySelectorAll("input, select, textarea")).find(isField) || null;
	};
	const labels = Array.from(this.querySelectorAll("label"));
	for (const exact of exactOnly ? [true] : [true, false]) {
		for (const l of labels) {
			const text = norm(l.textContent);
			if (exact ? text !== locator : !text.includes(locator)) continue;
			const f = target(l);
			if (f && fields.includes(f)) return f;
		}
	}
	return null;
}`
