package snapshot

import "strconv"

// Script returns a JavaScript expression that serializes the rendered page
// into the JSON accepted by [Decode]. The tree starts at the first element
// matching container, or at document.body when container is empty or
// matches nothing.
//
// Elements that would be drawn as a text run get their baseline measured
// by appending a zero-size marker glyph, reading its bottom edge and
// removing it again.
func Script(container string) string {
	return `(() => {
  const container = ` + strconv.Quote(container) + `;
  let root = document.body;
  if (container !== "") {
    root = document.querySelector(container) || document.body;
  }

  const isTextLeaf = (el) => {
    const nodes = Array.from(el.childNodes);
    const ownsText = nodes.some((n) => n.nodeType === Node.TEXT_NODE && n.textContent.trim() !== "");
    const onlyText = nodes.every((n) => n.nodeType === Node.TEXT_NODE);
    return (ownsText || onlyText) && el.textContent !== "";
  };

  const baseline = (el, rect) => {
    const marker = document.createElement("span");
    marker.setAttribute("style", "font-size:0");
    marker.innerText = "A";
    el.append(marker);
    const offset = marker.getBoundingClientRect().bottom - rect.bottom;
    marker.remove();
    return offset;
  };

  const serialize = (el) => {
    const rect = el.getBoundingClientRect();
    const cs = getComputedStyle(el);
    const attrs = {};
    for (const a of el.attributes) attrs[a.name] = a.value;
    const node = {
      tag: el.tagName.toLowerCase(),
      attrs,
      box: { left: rect.left, top: rect.top, width: rect.width, height: rect.height },
      style: {
        color: cs.color,
        opacity: parseFloat(cs.opacity),
        fontFamily: cs.fontFamily,
        fontSize: parseFloat(cs.fontSize),
        transform: cs.transform,
      },
      children: [],
    };
    if (node.tag === "img") return node;
    if (isTextLeaf(el)) node.baseline = baseline(el, rect);
    for (const child of el.childNodes) {
      if (child.nodeType === Node.TEXT_NODE) {
        node.children.push({ text: child.textContent });
      } else if (child.nodeType === Node.ELEMENT_NODE) {
        node.children.push(serialize(child));
      }
    }
    return node;
  };

  const fontFaces = [];
  for (const sheet of document.styleSheets) {
    let rules;
    try {
      rules = sheet.cssRules;
    } catch (e) {
      continue;
    }
    for (const rule of rules) {
      if (rule instanceof CSSFontFaceRule) {
        fontFaces.push({
          family: rule.style.getPropertyValue("font-family"),
          src: rule.style.getPropertyValue("src"),
        });
      }
    }
  }

  return JSON.stringify({ baseURL: document.baseURI, fontFaces, root: serialize(root) });
})()`
}
