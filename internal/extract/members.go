package extract

import (
	"cmp"
	"slices"
	"strings"

	"github.com/jward/apisurface/internal/metadata"
	"github.com/jward/apisurface/internal/model"
	"github.com/jward/apisurface/internal/render"
)

// group is the primary member sort key.
type group uint8

const (
	groupNested group = iota
	groupEvent
	groupField
	groupConstructor
	groupProperty
	groupMethod
)

type entry struct {
	group  group
	name   string
	params string
	member *model.Member
}

func compareEntries(x, y entry) int {
	return cmp.Or(
		cmp.Compare(x.group, y.group),
		strings.Compare(x.name, y.name),
		strings.Compare(x.params, y.params),
	)
}

func paramNames(m *metadata.Method) string {
	names := make([]string, len(m.Params))
	for i, p := range m.Params {
		names[i] = p.Name
	}
	return strings.Join(names, ",")
}

func (b *Builder) members(t *metadata.Type) ([]*model.Member, error) {
	if t.IsEnum() {
		var out []*model.Member
		for _, f := range t.Fields {
			if render.IsExportedField(f) {
				out = append(out, &model.Member{Name: f.Name, Kind: model.Field, Signature: render.Field(f)})
			}
		}
		return out, nil
	}

	var entries []entry
	add := func(g group, name, params string, kind model.MemberKind, sig string) {
		entries = append(entries, entry{
			group:  g,
			name:   name,
			params: params,
			member: &model.Member{Name: name, Kind: kind, Signature: sig},
		})
	}

	for _, nt := range t.NestedTypes {
		if render.IsExportedDelegate(nt) {
			add(groupNested, nt.Name, "", model.Delegate, render.Delegate(nt))
		}
	}
	for _, e := range t.Events {
		if render.IsExportedEvent(e) {
			add(groupEvent, e.Name, "", model.Event, render.Event(e))
		}
	}
	for _, f := range t.Fields {
		if render.IsExportedField(f) {
			add(groupField, f.Name, "", model.Field, render.Field(f))
		}
	}
	for _, c := range t.Constructors {
		if !render.IsExportedConstructor(c) {
			continue
		}
		sig, err := render.Method(c)
		if err != nil {
			return nil, err
		}
		add(groupConstructor, c.Name, paramNames(c), model.Constructor, sig)
	}
	for _, p := range t.Properties {
		if !render.IsExportedProperty(p) {
			continue
		}
		sig, err := render.Property(p)
		if err != nil {
			return nil, err
		}
		add(groupProperty, p.Name, "", model.Property, sig)
	}
	for _, m := range t.Methods {
		if !render.IsExportedMethod(m) {
			if base := m.Overridden(); base != nil && render.IsVisibleAccess(m.Access) {
				b.log.Debug("override.suppressed", "method", m.String(), "overrides", base.String())
			}
			continue
		}
		sig, err := render.Method(m)
		if err != nil {
			return nil, err
		}
		add(groupMethod, m.Name, paramNames(m), model.Method, sig)
	}

	slices.SortStableFunc(entries, compareEntries)
	out := make([]*model.Member, len(entries))
	for i, e := range entries {
		out[i] = e.member
	}
	return out, nil
}
