package search

import (
	"encoding/json"
	"fmt"
	"sync/atomic"
	"time"

	meili "github.com/meilisearch/meilisearch-go"
	"go.uber.org/zap"

	"factboard/api/internal/category"
	"factboard/api/internal/store"
)

const idxFacts = "factboard_facts"

// Meili indexes and searches facts in Meilisearch.
type Meili struct {
	client  meili.ServiceManager
	healthy   atomic.Bool
	onRecover atomic.Pointer[func()]
	done      chan struct{}
	logger    *zap.Logger
}

// NewMeili creates a client, configures the index when reachable and keeps
// probing health in the background.
func NewMeili(url, apiKey string, logger *zap.Logger) *Meili {
	if logger == nil {
		logger = zap.NewNop()
	}
	m := &Meili{
		client: meili.New(url, meili.WithAPIKey(apiKey)),
		done:   make(chan struct{}),
		logger: logger,
	}

	if _, err := m.client.Health(); err != nil {
		logger.Warn("meilisearch unavailable", zap.String("url", url), zap.Error(err))
		m.healthy.Store(false)
	} else {
		m.healthy.Store(true)
		m.configureIndex()
	}

	go m.healthLoop()
	return m
}

func (m *Meili) configureIndex() {
	if _, err := m.client.CreateIndex(&meili.IndexConfig{Uid: idxFacts, PrimaryKey: "id"}); err != nil {
		m.logger.Debug("create index (may already exist)", zap.String("index", idxFacts), zap.Error(err))
	}

	index := m.client.Index(idxFacts)
	filterable := []interface{}{"category"}
	if _, err := index.UpdateFilterableAttributes(&filterable); err != nil {
		m.logger.Warn("update filterable attributes", zap.Error(err))
	}
	searchable := []string{"text"}
	if _, err := index.UpdateSearchableAttributes(&searchable); err != nil {
		m.logger.Warn("update searchable attributes", zap.Error(err))
	}
	sortable := []string{string(store.VotesInteresting)}
	if _, err := index.UpdateSortableAttributes(&sortable); err != nil {
		m.logger.Warn("update sortable attributes", zap.Error(err))
	}
}

func (m *Meili) healthLoop() {
	ticker := time.NewTicker(10 * time.Second)
	defer ticker.Stop()
	for {
		select {
		case <-m.done:
			return
		case <-ticker.C:
			_, err := m.client.Health()
			m.observeHealth(err)
		}
	}
}

func (m *Meili) observeHealth(err error) {
	wasHealthy := m.healthy.Swap(err == nil)
	if err != nil || wasHealthy {
		return
	}
	m.logger.Info("meilisearch recovered, reconfiguring index")
	m.configureIndex()
	if fn := m.onRecover.Load(); fn != nil {
		(*fn)()
	}
}

// OnRecover registers fn to run after the index is reconfigured following an
// outage. It replaces any earlier registration.
func (m *Meili) OnRecover(fn func()) {
	m.onRecover.Store(&fn)
}

// Close stops the background health monitor.
func (m *Meili) Close() {
	close(m.done)
}

func (m *Meili) Healthy() bool {
	return m.healthy.Load()
}

func (m *Meili) Search(q Query) ([]store.Fact, int, error) {
	if !m.healthy.Load() {
		return nil, 0, fmt.Errorf("meilisearch unhealthy")
	}

	req := &meili.SearchRequest{
		IndexUID: idxFacts,
		Query:    q.Text,
		Limit:    int64(q.limit()),
	}
	if (store.FactQuery{Category: q.Category}).Filtered() {
		req.Filter = fmt.Sprintf("category = %q", q.Category)
	}

	resp, err := m.client.MultiSearch(&meili.MultiSearchRequest{
		Queries: []*meili.SearchRequest{req},
	})
	if err != nil {
		m.healthy.Store(false)
		return nil, 0, fmt.Errorf("meilisearch search: %w", err)
	}

	results := make([]store.Fact, 0)
	total := 0
	for _, sr := range resp.Results {
		total += int(sr.EstimatedTotalHits)
		for _, hit := range sr.Hits {
			item, err := hitToFact(hit)
			if err != nil {
				m.logger.Warn("skip undecodable hit", zap.Error(err))
				continue
			}
			results = append(results, item)
		}
	}
	return results, total, nil
}

func hitToFact(hit meili.Hit) (store.Fact, error) {
	raw, err := json.Marshal(hit)
	if err != nil {
		return store.Fact{}, fmt.Errorf("encode hit: %w", err)
	}
	var item store.Fact
	if err := json.Unmarshal(raw, &item); err != nil {
		return store.Fact{}, fmt.Errorf("decode hit: %w", err)
	}
	if item.ID == 0 {
		return store.Fact{}, fmt.Errorf("hit without id")
	}
	if !category.Contains(item.Category) {
		return store.Fact{}, fmt.Errorf("hit %d has unknown category %q", item.ID, item.Category)
	}
	return item, nil
}

// IndexFacts adds or replaces facts in the index.
func (m *Meili) IndexFacts(facts []store.Fact) error {
	if len(facts) == 0 {
		return nil
	}
	_, err := m.client.Index(idxFacts).AddDocuments(facts, nil)
	return err
}
