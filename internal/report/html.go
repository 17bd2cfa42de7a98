package report

import (
	"fmt"
	"html/template"
	"io"
	"time"

	"github.com/jward/apisurface/internal/diff"
	"github.com/jward/apisurface/internal/model"
)

type baselinePage struct {
	Generated string
	Libraries []baselineLibrary
}

type baselineLibrary struct {
	ID         string
	Name       string
	Display    string
	Tooltip    string
	Namespaces []baselineNamespace
}

type baselineNamespace struct {
	ID      string
	Name    string
	Tooltip string
	Types   []baselineType
}

type baselineType struct {
	ID        string
	Signature string
	Tooltip   string
	Members   []string
}

// WriteBaseline renders set as a browsable HTML document stamped with
// generated.
func WriteBaseline(w io.Writer, set *model.LibrarySet, generated time.Time) error {
	page := baselinePage{Generated: stamp(generated)}
	if set != nil {
		for _, l := range set.Libraries {
			page.Libraries = append(page.Libraries, buildBaselineLibrary(l))
		}
	}
	if err := baselineTemplate.Execute(w, page); err != nil {
		return fmt.Errorf("executing baseline template: %w", err)
	}
	return nil
}

func buildBaselineLibrary(l *model.Library) baselineLibrary {
	types := 0
	for _, n := range l.Namespaces {
		types += len(n.Types)
	}
	out := baselineLibrary{
		ID:      elementID(l.Name),
		Name:    l.Name,
		Display: l.Display,
		Tooltip: fmt.Sprintf("Library %s (%d namespaces, %d types)", l.Name, len(l.Namespaces), types),
	}
	for _, n := range l.Namespaces {
		ns := baselineNamespace{
			ID:      elementID(l.Name, n.Name),
			Name:    namespaceLabel(n.Name),
			Tooltip: fmt.Sprintf("Namespace %s (%d types)", namespaceLabel(n.Name), len(n.Types)),
		}
		for _, t := range n.Types {
			ns.Types = append(ns.Types, baselineType{
				ID:        elementID(l.Name, n.Name, t.Name),
				Signature: t.Signature,
				Tooltip:   fmt.Sprintf("Type %s (%d members)", t.Name, len(t.Members)),
				Members:   sortedMembers(t),
			})
		}
		out.Namespaces = append(out.Namespaces, ns)
	}
	return out
}

// DiffHeader names the two baselines a diff document compares.
type DiffHeader struct {
	Baseline1 string
	Baseline2 string
	Generated time.Time
}

type diffPage struct {
	Generated string
	Baseline1 string
	Baseline2 string
	Empty     bool
	Libraries []*diff.Library
}

// WriteDiff renders r as an HTML document.
func WriteDiff(w io.Writer, r *diff.Report, h DiffHeader) error {
	page := diffPage{
		Generated: stamp(h.Generated),
		Baseline1: h.Baseline1,
		Baseline2: h.Baseline2,
		Empty:     r.Empty(),
	}
	if r != nil {
		page.Libraries = r.Libraries
	}
	if err := diffTemplate.Execute(w, page); err != nil {
		return fmt.Errorf("executing diff template: %w", err)
	}
	return nil
}

var funcs = template.FuncMap{
	"marker": func(c diff.Change) string {
		if m := marker(c); m != "" {
			return "[" + m + "] "
		}
		return ""
	},
	"changeClass": func(c diff.Change) string {
		switch c {
		case diff.Added:
			return "added"
		case diff.Removed:
			return "removed"
		}
		return ""
	},
	"namespace": namespaceLabel,
}

var baselineTemplate = template.Must(template.New("baseline").Parse(`<!DOCTYPE html>
<html>
<head>
<meta charset="utf-8">
<title>API Baseline {{.Generated}}</title>
<style>
  .typesig { font-family: monospace; font-size: 1.1em; font-weight: bold; }
  ul { margin-top: 0; }
  ul.membersig li { font-family: monospace; font-size: 1em; }
  a { text-decoration: none; color: black; }
  a.toggle { font-family: monospace; }
  a.childToggle { font-size: 0.8em; }
  .heading { display: inline-block; vertical-align: middle; margin: 0; }
  .links { display: inline-block; }
  .indent { margin-left: 25px; }
</style>
</head>
<body>
<h1>API Baseline</h1>
<h3>Date: {{.Generated}}</h3>
<h2 style="margin-bottom:0;">Libraries:</h2>
<ul>
{{- range .Libraries}}
<li>{{.Display}}</li>
{{- end}}
</ul>
<hr/>
{{- range .Libraries}}
<div id="h_{{.ID}}">
  <a class="toggle" href="#" data-toggle="{{.ID}}" title="{{.Tooltip}}"><h2 class="heading">{{.Name}}</h2></a>
  <div id="l_{{.ID}}" class="links">
    <a class="childToggle" href="#" data-collapse="{{.ID}}">[Collapse Children]</a>
    <a class="childToggle" href="#" data-expand="{{.ID}}">[Expand Children]</a>
  </div>
</div>
<div id="c_{{.ID}}" class="indent">
{{- range .Namespaces}}
<div id="h_{{.ID}}">
  <a class="toggle" href="#" data-toggle="{{.ID}}" title="{{.Tooltip}}"><h3 class="heading">{{.Name}}</h3></a>
  <div id="l_{{.ID}}" class="links">
    <a class="childToggle" href="#" data-collapse="{{.ID}}">[Collapse Children]</a>
    <a class="childToggle" href="#" data-expand="{{.ID}}">[Expand Children]</a>
  </div>
</div>
<div id="c_{{.ID}}" class="indent">
{{- range .Types}}
<div id="h_{{.ID}}">
  <a class="toggle" href="#" data-toggle="{{.ID}}" title="{{.Tooltip}}"><div class="typesig heading">{{.Signature}}</div></a>
</div>
<ul class="membersig" id="c_{{.ID}}">
{{- range .Members}}
<li>{{.}}</li>
{{- end}}
</ul>
{{- end}}
</div>
{{- end}}
</div>
{{- end}}
<script>
  function setExpanded(id, expanded) {
    var content = document.getElementById('c_' + id);
    var links = document.getElementById('l_' + id);
    content.style.display = expanded ? '' : 'none';
    if (links) { links.style.display = expanded ? '' : 'none'; }
  }
  function setChildren(id, expanded) {
    var kids = document.getElementById('c_' + id).children;
    for (var i = 0; i < kids.length; i++) {
      var kid = kids[i].id;
      if (!kid || kid.indexOf('c_') !== 0) { continue; }
      kid = kid.slice(2);
      setExpanded(kid, expanded);
      setChildren(kid, expanded);
    }
  }
  document.addEventListener('click', function (e) {
    var a = e.target.closest('a[data-toggle], a[data-collapse], a[data-expand]');
    if (!a) { return; }
    e.preventDefault();
    if (a.dataset.toggle) {
      setExpanded(a.dataset.toggle, document.getElementById('c_' + a.dataset.toggle).style.display === 'none');
    } else if (a.dataset.collapse) {
      setChildren(a.dataset.collapse, false);
    } else {
      setChildren(a.dataset.expand, true);
    }
  });
</script>
</body>
</html>
`))

var diffTemplate = template.Must(template.New("diff").Funcs(funcs).Parse(`<!DOCTYPE html>
<html>
<head>
<meta charset="utf-8">
<title>API Diff {{.Generated}}</title>
<style>
  .added { color: DarkGreen; }
  .removed { color: DarkRed; }
  .mono { font-family: monospace; }
  h2 { font-family: monospace; margin-bottom: 0; }
</style>
</head>
<body>
<h1>API Diff</h1>
<b>Date:</b> {{.Generated}}<br/>
<b>Baseline 1:</b> {{.Baseline1}}<br/>
<b>Baseline 2:</b> {{.Baseline2}}<br/>
<hr/>
{{- if .Empty}}
No differences.
{{- end}}
{{- range .Libraries}}
<h1 class="{{changeClass .Change}}">{{marker .Change}}{{.Name}}</h1>
{{.Display}}
<ul>
{{- range .Namespaces}}
<h2 class="{{changeClass .Change}}">{{marker .Change}}{{namespace .Name}}</h2>
<ul>
{{- range .Types}}
<h3 class="{{changeClass .Change}}" title="{{.Signature}}">{{marker .Change}}{{.Name}}</h3>
{{- if .SignatureChanged}}
{{- if .OldSignature}}
<div class="mono removed">{{.OldSignature}}</div>
{{- end}}
{{- if .NewSignature}}
<div class="mono added">{{.NewSignature}}</div>
{{- end}}
{{- end}}
<ul class="mono">
{{- range .Members}}
<li class="{{changeClass .Change}}">{{marker .Change}}{{.Signature}}</li>
{{- end}}
</ul>
{{- end}}
</ul>
{{- end}}
</ul>
{{- end}}
</body>
</html>
`))
