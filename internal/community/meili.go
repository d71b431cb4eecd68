package community

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"sync/atomic"
	"time"
	"unicode/utf8"

	meili "github.com/meilisearch/meilisearch-go"

	"studysync/internal/domain/models"
)

const (
	// IndexName is the Meilisearch index holding published documents
	IndexName = "studysync_community"

	healthInterval = 10 * time.Second
	snippetRunes   = 280
	idPageSize     = 1000
)

// record is the shape stored in the Meilisearch index
type record struct {
	ID          string `json:"id"`
	OwnerID     string `json:"ownerId"`
	Title       string `json:"title"`
	Snippet     string `json:"snippet"`
	PublishedAt int64  `json:"publishedAt"`
}

func recordOf(doc *models.Document) record {
	r := record{
		ID:      doc.ID,
		OwnerID: doc.OwnerID,
		Title:   doc.Title,
		Snippet: snippetOf(doc.Content, snippetRunes),
	}
	if doc.PublishedAt != nil {
		r.PublishedAt = doc.PublishedAt.Unix()
	}
	return r
}

func recordOfPublished(doc models.PublishedDocument) record {
	return record{
		ID:          doc.ID,
		OwnerID:     doc.OwnerID,
		Title:       doc.Title,
		Snippet:     snippetOf(doc.Snippet, snippetRunes),
		PublishedAt: doc.PublishedAt.Unix(),
	}
}

// Meili indexes and searches published documents in Meilisearch
type Meili struct {
	client    meili.ServiceManager
	healthy   atomic.Bool
	recovered chan struct{}
	done      chan struct{}
	logger    *slog.Logger
}

// NewMeili creates a Meilisearch client and configures the community index.
// An unreachable server is not an error: the health loop keeps probing and
// callers fall back to Postgres meanwhile.
func NewMeili(url, apiKey string, logger *slog.Logger) *Meili {
	client := meili.New(url, meili.WithAPIKey(apiKey))

	m := &Meili{
		client:    client,
		recovered: make(chan struct{}, 1),
		done:      make(chan struct{}),
		logger:    logger,
	}

	if _, err := client.Health(); err != nil {
		logger.Warn("meilisearch unavailable", "url", url, "error", err)
		m.healthy.Store(false)
	} else {
		m.healthy.Store(true)
		m.configureIndex()
	}

	go m.healthLoop()
	return m
}

func (m *Meili) configureIndex() {
	if _, err := m.client.CreateIndex(&meili.IndexConfig{
		Uid:        IndexName,
		PrimaryKey: "id",
	}); err != nil {
		m.logger.Debug("create index (may already exist)", "index", IndexName, "error", err)
	}

	index := m.client.Index(IndexName)
	searchable := []string{"title", "snippet"}
	if _, err := index.UpdateSearchableAttributes(&searchable); err != nil {
		m.logger.Warn("update searchable attributes", "index", IndexName, "error", err)
	}
	sortable := []string{"publishedAt"}
	if _, err := index.UpdateSortableAttributes(&sortable); err != nil {
		m.logger.Warn("update sortable attributes", "index", IndexName, "error", err)
	}
}

func (m *Meili) healthLoop() {
	ticker := time.NewTicker(healthInterval)
	defer ticker.Stop()
	for {
		select {
		case <-m.done:
			return
		case <-ticker.C:
			_, err := m.client.Health()
			wasHealthy := m.healthy.Load()
			m.healthy.Store(err == nil)
			if err == nil && !wasHealthy {
				m.logger.Info("meilisearch recovered, reconfiguring index")
				m.configureIndex()
				select {
				case m.recovered <- struct{}{}:
				default:
				}
			}
		}
	}
}

// Recovered signals each time Meilisearch comes back after being unreachable
func (m *Meili) Recovered() <-chan struct{} {
	return m.recovered
}

// Close stops the background health monitor
func (m *Meili) Close() {
	close(m.done)
}

// Healthy reports whether Meilisearch is reachable
func (m *Meili) Healthy() bool {
	return m.healthy.Load()
}

// Search queries the community index
func (m *Meili) Search(query string, limit, offset int) ([]models.PublishedDocument, int, error) {
	if !m.healthy.Load() {
		return nil, 0, fmt.Errorf("meilisearch unhealthy")
	}

	resp, err := m.client.Index(IndexName).Search(query, &meili.SearchRequest{
		Limit:                 int64(limit),
		Offset:                int64(offset),
		AttributesToHighlight: []string{"title", "snippet"},
		HighlightPreTag:       "<mark>",
		HighlightPostTag:      "</mark>",
	})
	if err != nil {
		m.healthy.Store(false)
		return nil, 0, fmt.Errorf("meilisearch search: %w", err)
	}

	docs := make([]models.PublishedDocument, 0, len(resp.Hits))
	for _, hit := range resp.Hits {
		docs = append(docs, hitToPublished(hit))
	}
	return docs, int(resp.EstimatedTotalHits), nil
}

// Index adds or replaces records
func (m *Meili) Index(records ...record) error {
	if len(records) == 0 {
		return nil
	}
	_, err := m.client.Index(IndexName).AddDocuments(records, nil)
	return err
}

// Delete removes records by ID
func (m *Meili) Delete(ids ...string) error {
	if len(ids) == 0 {
		return nil
	}
	_, err := m.client.Index(IndexName).DeleteDocuments(ids, nil)
	return err
}

// IndexedIDs lists the ID of every record in the index
func (m *Meili) IndexedIDs() ([]string, error) {
	ids := []string{}
	for offset := int64(0); ; offset += idPageSize {
		var resp meili.DocumentsResult
		err := m.client.Index(IndexName).GetDocuments(&meili.DocumentsQuery{
			Offset: offset,
			Limit:  idPageSize,
			Fields: []string{"id"},
		}, &resp)
		if err != nil {
			return nil, fmt.Errorf("list indexed documents: %w", err)
		}
		for _, hit := range resp.Results {
			if id := decodeString(hit, "id"); id != "" {
				ids = append(ids, id)
			}
		}
		if len(resp.Results) == 0 || offset+int64(len(resp.Results)) >= resp.Total {
			return ids, nil
		}
	}
}

func hitToPublished(hit meili.Hit) models.PublishedDocument {
	doc := models.PublishedDocument{
		ID:      decodeString(hit, "id"),
		OwnerID: decodeString(hit, "ownerId"),
		Title:   firstNonBlank(decodeFormattedString(hit, "title"), decodeString(hit, "title")),
		Snippet: firstNonBlank(decodeFormattedString(hit, "snippet"), decodeString(hit, "snippet")),
	}
	if raw, ok := hit["publishedAt"]; ok {
		var unix int64
		if err := json.Unmarshal(raw, &unix); err == nil && unix > 0 {
			doc.PublishedAt = time.Unix(unix, 0).UTC()
		}
	}
	return doc
}

func decodeString(hit meili.Hit, key string) string {
	raw, ok := hit[key]
	if !ok {
		return ""
	}

	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s
	}
	return ""
}

func decodeFormattedString(hit meili.Hit, key string) string {
	raw, ok := hit["_formatted"]
	if !ok {
		return ""
	}
	var formatted map[string]json.RawMessage
	if err := json.Unmarshal(raw, &formatted); err != nil {
		return ""
	}
	var s string
	if err := json.Unmarshal(formatted[key], &s); err != nil {
		return ""
	}
	return strings.TrimSpace(s)
}

func firstNonBlank(values ...string) string {
	for _, value := range values {
		if strings.TrimSpace(value) != "" {
			return value
		}
	}
	return ""
}

// snippetOf cuts content to at most n runes
func snippetOf(content string, n int) string {
	content = strings.TrimSpace(content)
	if utf8.RuneCountInString(content) <= n {
		return content
	}
	runes := []rune(content)
	return strings.TrimSpace(string(runes[:n])) + "…"
}
