package extraction

import (
	"slices"
	"strings"

	"github.com/tidwall/gjson"

	"github.com/agenthands/archgraph/internal/core/model"
)

// DecodePartial normalizes the loose shapes a generator produces into a
// model.Partial. raw must be valid JSON (the output of repair.Repair).
//
// Accepted variations: actors as objects or bare strings, "microservices"
// or "services", "events" or "interactions", single strings where lists are
// expected. Entries that cannot be used are reported as skips.
func DecodePartial(raw []byte) (model.Partial, []model.Skip) {
	var p model.Partial
	var skips []model.Skip

	doc := gjson.ParseBytes(raw)
	if !doc.IsObject() {
		skips = append(skips, model.Skip{Kind: model.SkipDocument, Index: -1, Reason: "top-level value is not an object"})
		return p, skips
	}

	for i, item := range entries(doc, "actors") {
		actor, reason := decodeActor(item)
		if reason != "" {
			skips = append(skips, model.Skip{Kind: model.SkipActor, Index: i, Reason: reason})
			continue
		}
		p.Actors = append(p.Actors, actor)
	}

	for i, item := range entries(doc, "microservices", "services") {
		svc, reason := decodeService(item)
		if reason != "" {
			skips = append(skips, model.Skip{Kind: model.SkipService, Index: i, Reason: reason})
			continue
		}
		p.Services = append(p.Services, svc)
	}

	for i, item := range entries(doc, "events", "interactions") {
		ev, reason := decodeEvent(item)
		if reason != "" {
			skips = append(skips, model.Skip{Kind: model.SkipEvent, Index: i, Reason: reason})
			continue
		}
		p.Events = append(p.Events, ev)
	}

	return p, skips
}

// entries returns the items under the first of keys present in doc. A
// scalar or object stands for a one-item list; null means none.
func entries(doc gjson.Result, keys ...string) []gjson.Result {
	for _, key := range keys {
		v := doc.Get(key)
		if !v.Exists() {
			continue
		}
		switch {
		case v.Type == gjson.Null:
			return nil
		case v.IsArray():
			return v.Array()
		default:
			return []gjson.Result{v}
		}
	}
	return nil
}

func decodeActor(item gjson.Result) (model.Actor, string) {
	if name, ok := text(item); ok {
		return model.Actor{Name: name, Kind: model.ActorExternal}, ""
	}
	if !item.IsObject() {
		return model.Actor{}, "actor is neither an object nor a string"
	}
	name, ok := text(item.Get("name"))
	if !ok {
		return model.Actor{}, "actor has no name"
	}
	return model.Actor{Name: name, Kind: model.ParseActorKind(item.Get("type").String())}, ""
}

func decodeService(item gjson.Result) (model.Service, string) {
	if !item.IsObject() {
		return model.Service{}, "service is not an object"
	}
	name, ok := text(item.Get("name"))
	if !ok {
		return model.Service{}, "service has no name"
	}

	scaling, ok := text(item.Get("scaling"))
	if !ok {
		scaling = "Unknown"
	}

	return model.Service{
		Name:        name,
		Database:    databaseRef(item.Get("db")),
		Exposes:     texts(item.Get("exposes")),
		Consumes:    texts(item.Get("consumes")),
		Scaling:     scaling,
		Criticality: model.ParseCriticality(item.Get("criticality").String()),
	}, ""
}

func decodeEvent(item gjson.Result) (model.Event, string) {
	if !item.IsObject() {
		return model.Event{}, "event is not an object"
	}
	from, okFrom := text(item.Get("from"))
	to, okTo := text(item.Get("to"))
	if !okFrom || !okTo {
		return model.Event{}, "event is missing an endpoint"
	}

	kind, ok := text(item.Get("type"))
	if !ok {
		kind = model.UnknownEventKind
	}
	description, _ := text(item.Get("description"))

	return model.Event{From: from, To: to, Kind: kind, Description: description}, ""
}

// text returns a scalar as a trimmed string. Objects, arrays, null and
// blank strings are not text.
func text(v gjson.Result) (string, bool) {
	var s string
	switch v.Type {
	case gjson.String:
		s = strings.TrimSpace(v.Str)
	case gjson.Number, gjson.True, gjson.False:
		s = v.Raw
	default:
		return "", false
	}
	return s, s != ""
}

func texts(v gjson.Result) []string {
	out := []string{}
	var items []gjson.Result
	if v.IsArray() {
		items = v.Array()
	} else {
		items = []gjson.Result{v}
	}
	for _, item := range items {
		s, ok := text(item)
		if ok && !slices.Contains(out, s) {
			out = append(out, s)
		}
	}
	return out
}

func databaseRef(v gjson.Result) *string {
	s, ok := text(v)
	if !ok {
		return nil
	}
	switch strings.ToLower(s) {
	case "null", "none", "n/a":
		return nil
	}
	return &s
}
