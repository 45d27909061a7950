package graph

import (
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/agenthands/archgraph/internal/core/model"
)

func strPtr(s string) *string { return &s }

func orders(criticality model.Criticality, db string) model.Service {
	svc := model.Service{
		Name:        "Orders",
		Exposes:     []string{"REST"},
		Consumes:    []string{"Queue"},
		Scaling:     "AutoScale",
		Criticality: criticality,
	}
	if db != "" {
		svc.Database = strPtr(db)
	}
	return svc
}

func TestMerge(t *testing.T) {
	t.Run("empty partial leaves graph empty", func(t *testing.T) {
		g := Merge(New(), model.Partial{})

		assert.Equal(t, Counts{}, g.Counts())
		doc := g.Document()
		assert.NotNil(t, doc.Actors)
		assert.NotNil(t, doc.Microservices)
		assert.NotNil(t, doc.Databases)
		assert.NotNil(t, doc.Events)
	})

	t.Run("returns the same graph", func(t *testing.T) {
		g := New()
		assert.Same(t, g, Merge(g, model.Partial{}))
	})

	t.Run("actors are last write wins", func(t *testing.T) {
		g := New()
		Merge(g, model.Partial{Actors: []model.Actor{{Name: "User", Kind: model.ActorExternal}, {Name: "Admin", Kind: model.ActorInternal}}})
		Merge(g, model.Partial{Actors: []model.Actor{{Name: "User", Kind: model.ActorInternal}}})

		actors := g.Actors()
		require.Len(t, actors, 2)
		assert.Equal(t, model.Actor{Name: "User", Kind: model.ActorInternal}, actors[0])
		assert.Equal(t, "Admin", actors[1].Name)
	})

	t.Run("actor without kind defaults to External", func(t *testing.T) {
		g := Merge(New(), model.Partial{Actors: []model.Actor{{Name: "User"}}})

		a, ok := g.Actor("User")
		require.True(t, ok)
		assert.Equal(t, model.ActorExternal, a.Kind)
	})

	t.Run("service profile is frozen on first sighting", func(t *testing.T) {
		g := New()
		Merge(g, model.Partial{Services: []model.Service{orders(model.CriticalityHigh, "OrdersDB")}})

		later := orders(model.CriticalityLow, "OrdersDB")
		later.Exposes = []string{"gRPC"}
		later.Scaling = "Fixed"
		Merge(g, model.Partial{Services: []model.Service{later}})

		svc, ok := g.Service("Orders")
		require.True(t, ok)
		assert.Equal(t, model.CriticalityHigh, svc.Criticality)
		assert.Equal(t, []string{"REST"}, svc.Exposes)
		assert.Equal(t, "AutoScale", svc.Scaling)
		assert.Len(t, g.Services(), 1)
	})

	t.Run("repeat sighting still links its database", func(t *testing.T) {
		g := New()
		Merge(g, model.Partial{Services: []model.Service{orders(model.CriticalityHigh, "")}})
		st := fold(g, model.Partial{Services: []model.Service{orders(model.CriticalityLow, "OrdersDB")}})

		assert.Equal(t, 1, st.ServicesRepeated)
		assert.Equal(t, 1, st.DatabasesCreated)

		svc, _ := g.Service("Orders")
		assert.Nil(t, svc.Database)

		db, ok := g.Database("OrdersDB")
		require.True(t, ok)
		assert.Equal(t, []string{"Orders"}, db.UsedBy)
	})

	t.Run("services without a name are skipped", func(t *testing.T) {
		g := New()
		st := fold(g, model.Partial{Services: []model.Service{{Name: "  "}, {Name: "Payments"}}})

		assert.Equal(t, 1, st.Skipped)
		assert.Equal(t, 1, st.ServicesAdded)
		assert.Equal(t, 1, g.Counts().Services)
	})

	t.Run("duplicate protocols collapse", func(t *testing.T) {
		svc := model.Service{Name: "API", Exposes: []string{"REST", "REST", "gRPC"}}
		g := Merge(New(), model.Partial{Services: []model.Service{svc}})

		got, _ := g.Service("API")
		assert.Equal(t, []string{"REST", "gRPC"}, got.Exposes)
		assert.Equal(t, []string{}, got.Consumes)
	})

	t.Run("databases aggregate used_by across chunks", func(t *testing.T) {
		g := New()
		Merge(g, model.Partial{Services: []model.Service{orders(model.CriticalityHigh, "OrdersDB")}})
		Merge(g, model.Partial{Services: []model.Service{{Name: "Payments", Database: strPtr("OrdersDB")}}})

		dbs := g.Databases()
		require.Len(t, dbs, 1)
		assert.Equal(t, "OrdersDB", dbs[0].Name)
		assert.Equal(t, model.DatabaseUnknown, dbs[0].Kind)
		assert.ElementsMatch(t, []string{"Orders", "Payments"}, dbs[0].UsedBy)
	})

	t.Run("events are deduplicated by full tuple", func(t *testing.T) {
		ev := model.Event{From: "User", To: "API", Kind: "REST", Description: "place order"}
		g := New()
		Merge(g, model.Partial{Events: []model.Event{ev}})
		Merge(g, model.Partial{Events: []model.Event{ev}})
		assert.Len(t, g.Events(), 1)

		other := ev
		other.Description = "cancel order"
		Merge(g, model.Partial{Events: []model.Event{other}})

		events := g.Events()
		require.Len(t, events, 2)
		assert.Equal(t, ev, events[0])
		assert.Equal(t, other, events[1])
		assert.True(t, g.HasEvent(other))
	})

	t.Run("events missing an endpoint are skipped", func(t *testing.T) {
		g := New()
		st := fold(g, model.Partial{Events: []model.Event{
			{From: "User", Kind: "REST"},
			{To: "API"},
			{From: "User", To: "API"},
		}})

		assert.Equal(t, 2, st.Skipped)
		require.Len(t, g.Events(), 1)
		assert.Equal(t, model.UnknownEventKind, g.Events()[0].Kind)
	})
}

func TestMerge_Idempotent(t *testing.T) {
	p := model.Partial{
		Actors:   []model.Actor{{Name: "User", Kind: model.ActorExternal}},
		Services: []model.Service{orders(model.CriticalityHigh, "OrdersDB"), {Name: "Payments", Database: strPtr("OrdersDB")}},
		Events:   []model.Event{{From: "User", To: "Orders", Kind: "REST", Description: "place order"}},
	}

	once := Merge(New(), p)
	twice := Merge(Merge(New(), p), p)

	assert.Equal(t, once.Document(), twice.Document())
}

func TestMerge_OrderInsensitiveForDisjointChunks(t *testing.T) {
	a := model.Partial{
		Actors:   []model.Actor{{Name: "User"}},
		Services: []model.Service{orders(model.CriticalityHigh, "OrdersDB")},
		Events:   []model.Event{{From: "User", To: "Orders", Kind: "REST"}},
	}
	b := model.Partial{
		Actors:   []model.Actor{{Name: "Bank", Kind: model.ActorExternalSystem}},
		Services: []model.Service{{Name: "Payments", Database: strPtr("PaymentsDB")}},
		Events:   []model.Event{{From: "Payments", To: "Bank", Kind: "REST"}},
	}

	ab := Merge(Merge(New(), a), b)
	ba := Merge(Merge(New(), b), a)

	assert.ElementsMatch(t, ab.Actors(), ba.Actors())
	assert.ElementsMatch(t, ab.Services(), ba.Services())
	assert.ElementsMatch(t, ab.Databases(), ba.Databases())
	assert.ElementsMatch(t, ab.Events(), ba.Events())
}

func TestAccessorsReturnCopies(t *testing.T) {
	g := Merge(New(), model.Partial{Services: []model.Service{orders(model.CriticalityHigh, "OrdersDB")}})

	svc, _ := g.Service("Orders")
	svc.Exposes[0] = "mutated"
	*svc.Database = "mutated"

	dbs := g.Databases()
	dbs[0].UsedBy[0] = "mutated"

	again, _ := g.Service("Orders")
	assert.Equal(t, "REST", again.Exposes[0])
	assert.Equal(t, "OrdersDB", again.DatabaseName())
	db, _ := g.Database("OrdersDB")
	assert.Equal(t, []string{"Orders"}, db.UsedBy)
}

func TestFromDocument_RoundTrip(t *testing.T) {
	g := New()
	Merge(g, model.Partial{
		Actors:   []model.Actor{{Name: "User"}, {Name: "Bank", Kind: model.ActorExternalSystem}},
		Services: []model.Service{orders(model.CriticalityHigh, "OrdersDB"), {Name: "Payments", Database: strPtr("OrdersDB")}},
		Events:   []model.Event{{From: "User", To: "Orders", Kind: "REST", Description: "place order"}},
	})
	doc := g.Document()
	doc.Databases[0].Kind = model.DatabaseSQL

	restored := FromDocument(doc)

	assert.Equal(t, doc, restored.Document())
}

func TestAggregator_ConcurrentMerges(t *testing.T) {
	agg := NewAggregator(nil)

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			agg.Merge(model.Partial{
				Services: []model.Service{{Name: fmt.Sprintf("svc-%d", i), Database: strPtr("SharedDB")}},
				Events:   []model.Event{{From: "User", To: "API", Kind: "REST", Description: "shared"}},
			})
		}(i)
	}
	wg.Wait()

	doc := agg.Document()
	assert.Len(t, doc.Microservices, 20)
	require.Len(t, doc.Databases, 1)
	assert.Len(t, doc.Databases[0].UsedBy, 20)
	assert.Len(t, doc.Events, 1)
	assert.Equal(t, 20, agg.Graph().Counts().Services)
}
