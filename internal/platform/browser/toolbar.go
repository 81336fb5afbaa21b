package browser

import (
	"fmt"
	"html"
	"strings"

	"github.com/mj1618/quadview/internal/model"
)

// Names of the functions exposed to the controller page.
const (
	bindingAction = "quadviewAction"
	bindingFocus  = "quadviewFocus"
)

// layoutOptions renders the layout picker's options with mode selected.
func layoutOptions(mode model.LayoutMode) string {
	if !mode.Valid() {
		mode = model.DefaultLayout
	}
	var b strings.Builder
	for _, m := range []model.LayoutMode{model.TwoByTwo, model.OnePlusThree} {
		sel := ""
		if m == mode {
			sel = " selected"
		}
		fmt.Fprintf(&b, "    <option value=\"%s\"%s>%s</option>\n", m, sel, m)
	}
	return b.String()
}

// toolbarHTML renders the controller page: a toolbar of the given height
// over an empty area the children are tiled into.
func toolbarHTML(toolbar int, target string, mode model.LayoutMode) string {
	return fmt.Sprintf(`<!doctype html>
<html>
<head>
<meta charset="utf-8">
<title>quadview</title>
<style>
  html, body { margin: 0; height: 100%%; background: #1e1e1e; color: #ddd; font: 13px system-ui, sans-serif; }
  #toolbar { height: %dpx; display: flex; gap: 6px; align-items: center; padding: 0 8px; box-sizing: border-box; background: #2b2b2b; }
  #toolbar .target { margin-left: auto; opacity: .6; overflow: hidden; white-space: nowrap; text-overflow: ellipsis; max-width: 40%%; }
  button, select { background: #3a3a3a; color: inherit; border: 1px solid #555; border-radius: 4px; padding: 4px 10px; }
</style>
</head>
<body>
<div id="toolbar">
  <button data-action="retile">Retile</button>
  <button data-action="reshow">Reshow</button>
  <button data-action="reopen">Reopen</button>
  <button data-action="reset">Reset</button>
  <button data-action="reload">Reload</button>
  <select id="layout">
%s  </select>
  <button data-action="close">Close</button>
  <span class="target">%s</span>
</div>
<script>
  document.querySelectorAll('[data-action]').forEach((b) => {
    b.addEventListener('click', () => window.%s(b.dataset.action, ''));
  });
  document.getElementById('layout').addEventListener('change', (e) => {
    window.%s('layout', e.target.value);
  });
  window.addEventListener('focus', () => window.%s());
</script>
</body>
</html>
`, toolbar, layoutOptions(mode), html.EscapeString(target), bindingAction, bindingAction, bindingFocus)
}
