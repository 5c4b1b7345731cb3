package render

import (
	"bytes"
	"encoding/json"
	"html/template"
	"io"

	"github.com/TFMV/ptree/internal/walk"
)

var pageTemplate = template.Must(template.New("page").Parse(`<!DOCTYPE html>
<html lang="en">
<head>
<meta charset="utf-8">
<title>{{.Title}}</title>
<style>
body { font-family: ui-monospace, monospace; margin: 2em; }
ul { list-style: none; margin: 0; padding: 0; }
li { white-space: pre; }
.dir { color: #1f5fbf; font-weight: bold; }
.symlink { color: #0f8a8a; }
.error { color: #c0392b; }
.meta { color: #777; }
</style>
</head>
<body>
<h1>{{.Title}}</h1>
<ul id="tree"></ul>
<script id="entries" type="application/json">{{.Entries}}</script>
<script>
(function () {
  var entries = JSON.parse(document.getElementById("entries").textContent);
  var list = document.getElementById("tree");
  function bytes(n) {
    if (n < 1024) return n + " B";
    var units = "KMGTP", i = -1;
    do { n /= 1024; i++; } while (n >= 1024 && i < units.length - 1);
    return n.toFixed(1) + " " + units[i] + "iB";
  }
  entries.forEach(function (e) {
    var li = document.createElement("li");
    var name = document.createElement("span");
    name.className = e.kind;
    name.textContent = "    ".repeat(e.depth) + (e.depth === 0 ? e.path : e.name);
    li.appendChild(name);
    var meta = [];
    if (e.target) meta.push("-> " + e.target);
    if (typeof e.size === "number") meta.push("(" + bytes(e.size) + ")");
    if (e.status) meta.push("[" + e.status + "]");
    if (e.loop) meta.push("[loop]");
    if (meta.length) {
      var m = document.createElement("span");
      m.className = "meta";
      m.textContent = " " + meta.join(" ");
      li.appendChild(m);
    }
    if (e.error) {
      var err = document.createElement("span");
      err.className = "error";
      err.textContent = " [error: " + e.error + "]";
      li.appendChild(err);
    }
    list.appendChild(li);
  });
})();
</script>
</body>
</html>
`))

type htmlPage struct {
	Title   string
	Entries template.JS
}

// htmlRenderer collects the flat entry list and writes a static page that
// draws the listing client-side.
type htmlRenderer struct {
	w       io.Writer
	title   string
	sizes   sizeStack
	entries []*walk.Entry
}

func newHTML(w io.Writer, opts Options) *htmlRenderer {
	return &htmlRenderer{w: w, title: opts.Title}
}

func (r *htmlRenderer) Visit(step walk.Step) error {
	if r.title == "" && step.Entry.Depth == 0 {
		r.title = step.Entry.Path
	}
	r.sizes.visit(step)
	r.entries = append(r.entries, step.Entry)
	return nil
}

func (r *htmlRenderer) Leave(e *walk.Entry) error {
	r.sizes.leave(e)
	return nil
}

func (r *htmlRenderer) Finish() error {
	data, err := embedJSON(r.entries)
	if err != nil {
		return err
	}
	return pageTemplate.Execute(r.w, htmlPage{Title: r.title, Entries: template.JS(data)})
}

// embedJSON encodes entries for inclusion inside a script element. Any "</" is
// escaped so the payload cannot close the element early.
func embedJSON(entries []*walk.Entry) ([]byte, error) {
	if entries == nil {
		entries = []*walk.Entry{}
	}
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(entries); err != nil {
		return nil, err
	}
	data := bytes.TrimRight(buf.Bytes(), "\n")
	return bytes.ReplaceAll(data, []byte("</"), []byte(`<\/`)), nil
}
