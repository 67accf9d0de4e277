// Package elastic serves property searches from an Elasticsearch index and
// keeps the index in step with writes to the wrapped store.
package elastic

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"property-browser/internal/common/errors"
	"property-browser/internal/common/logger"
	"property-browser/internal/filter"
	"property-browser/internal/models"
	"property-browser/internal/store"

	"github.com/elastic/go-elasticsearch/v8"
	"github.com/elastic/go-elasticsearch/v8/esapi"
)

const (
	Backend      = "elasticsearch"
	DefaultIndex = "properties"

	// maxResultWindow is the default index.max_result_window.
	maxResultWindow = 10000
)

// PropertyStore answers Search from the index and delegates everything else
// to the wrapped store. Text queries are matched locally on the hydrated hits
// so substring semantics stay identical to the other backends.
type PropertyStore struct {
	next   store.PropertyStore
	client *elasticsearch.Client
	index  string
	logger logger.Logger
}

var _ store.PropertyStore = (*PropertyStore)(nil)

func NewPropertyStore(next store.PropertyStore, client *elasticsearch.Client, index string, log logger.Logger) *PropertyStore {
	if index == "" {
		index = DefaultIndex
	}
	return &PropertyStore{
		next:   next,
		client: client,
		index:  index,
		logger: logger.ForComponent(log, "property-search-index"),
	}
}

// BuildQuery translates spec into a bool query of range and terms filters.
func BuildQuery(spec models.FilterSpec) map[string]interface{} {
	spec = spec.Normalize()
	filterClauses := []interface{}{}

	addRange := func(field, op string, value interface{}) {
		filterClauses = append(filterClauses, map[string]interface{}{
			"range": map[string]interface{}{
				field: map[string]interface{}{op: value},
			},
		})
	}

	if spec.PriceMin != nil {
		addRange("price", "gte", *spec.PriceMin)
	}
	if spec.PriceMax != nil {
		addRange("price", "lte", *spec.PriceMax)
	}
	if spec.BedroomsMin != nil {
		addRange("bedrooms", "gte", *spec.BedroomsMin)
	}
	if spec.BathroomsMin != nil {
		addRange("bathrooms", "gte", *spec.BathroomsMin)
	}
	if spec.SquareFeetMin != nil {
		addRange("squareFeet", "gte", *spec.SquareFeetMin)
	}
	if len(spec.PropertyTypes) > 0 {
		filterClauses = append(filterClauses, map[string]interface{}{
			"terms": map[string]interface{}{"propertyType": spec.PropertyTypes},
		})
	}

	return map[string]interface{}{
		"query": map[string]interface{}{
			"bool": map[string]interface{}{"filter": filterClauses},
		},
		"sort": []interface{}{
			map[string]interface{}{"listingDate": map[string]interface{}{"order": "desc"}},
			map[string]interface{}{"id": map[string]interface{}{"order": "asc"}},
		},
	}
}

type searchResponse struct {
	Hits struct {
		Total struct {
			Value int `json:"value"`
		} `json:"total"`
		Hits []struct {
			Source models.Property `json:"_source"`
		} `json:"hits"`
	} `json:"hits"`
}

// Search queries the index. When the index is unreachable, or the matches do
// not fit in one result window, the call falls back to the wrapped store.
func (s *PropertyStore) Search(ctx context.Context, spec models.FilterSpec) ([]models.Property, error) {
	props, total, err := s.search(ctx, spec)
	if err != nil {
		if ctx.Err() != nil {
			return nil, err
		}
		s.logger.Warn("index search failed, using backing store", map[string]interface{}{
			"index": s.index,
			"error": err,
		})
		return s.next.Search(ctx, spec)
	}
	if total > maxResultWindow {
		s.logger.Warn("index matches exceed result window, using backing store", map[string]interface{}{
			"index":  s.index,
			"total":  total,
			"window": maxResultWindow,
		})
		return s.next.Search(ctx, spec)
	}
	return props, nil
}

func (s *PropertyStore) search(ctx context.Context, spec models.FilterSpec) (props []models.Property, total int, err error) {
	defer store.Observe(Backend, "search", time.Now(), &err)

	query := BuildQuery(spec)
	query["track_total_hits"] = true
	body, err := json.Marshal(query)
	if err != nil {
		return nil, 0, errors.Backend(Backend, "search", err)
	}

	size := maxResultWindow
	req := esapi.SearchRequest{
		Index: []string{s.index},
		Body:  bytes.NewReader(body),
		Size:  &size,
	}
	res, err := req.Do(ctx, s.client)
	if err != nil {
		return nil, 0, errors.Backend(Backend, "search", err)
	}
	defer res.Body.Close()

	if res.IsError() {
		return nil, 0, errors.Backend(Backend, "search", fmt.Errorf("search %s: %s", s.index, res.Status()))
	}

	var decoded searchResponse
	if err := json.NewDecoder(res.Body).Decode(&decoded); err != nil {
		return nil, 0, errors.Backend(Backend, "search", fmt.Errorf("decode hits: %w", err))
	}

	props = make([]models.Property, 0, len(decoded.Hits.Hits))
	for _, hit := range decoded.Hits.Hits {
		props = append(props, hit.Source)
	}
	return filter.Apply(props, spec), decoded.Hits.Total.Value, nil
}

func (s *PropertyStore) GetAll(ctx context.Context) ([]models.Property, error) {
	return s.next.GetAll(ctx)
}

func (s *PropertyStore) GetByID(ctx context.Context, id int) (*models.Property, error) {
	return s.next.GetByID(ctx, id)
}

func (s *PropertyStore) Create(ctx context.Context, p models.Property) (*models.Property, error) {
	created, err := s.next.Create(ctx, p)
	if err != nil {
		return nil, err
	}
	s.indexDocument(ctx, *created)
	return created, nil
}

func (s *PropertyStore) Update(ctx context.Context, id int, patch models.PropertyPatch) (*models.Property, error) {
	updated, err := s.next.Update(ctx, id, patch)
	if err != nil {
		return nil, err
	}
	s.indexDocument(ctx, *updated)
	return updated, nil
}

func (s *PropertyStore) Delete(ctx context.Context, id int) error {
	if err := s.next.Delete(ctx, id); err != nil {
		return err
	}

	req := esapi.DeleteRequest{
		Index:      s.index,
		DocumentID: strconv.Itoa(id),
		Refresh:    "true",
	}
	res, err := req.Do(ctx, s.client)
	if err != nil {
		s.logger.Warn("failed to remove document", map[string]interface{}{"propertyId": id, "error": err})
		return nil
	}
	defer res.Body.Close()

	if res.IsError() && res.StatusCode != http.StatusNotFound {
		s.logger.Warn("failed to remove document", map[string]interface{}{"propertyId": id, "status": res.Status()})
	}
	return nil
}

func (s *PropertyStore) indexDocument(ctx context.Context, p models.Property) {
	body, err := json.Marshal(p)
	if err != nil {
		return
	}

	req := esapi.IndexRequest{
		Index:      s.index,
		DocumentID: strconv.Itoa(p.ID),
		Body:       bytes.NewReader(body),
		Refresh:    "true",
	}
	res, err := req.Do(ctx, s.client)
	if err != nil {
		s.logger.Warn("failed to index document", map[string]interface{}{"propertyId": p.ID, "error": err})
		return
	}
	defer res.Body.Close()

	if res.IsError() {
		s.logger.Warn("failed to index document", map[string]interface{}{"propertyId": p.ID, "status": res.Status()})
	}
}

type bulkResponse struct {
	Errors bool `json:"errors"`
	Items  []map[string]struct {
		Status int `json:"status"`
	} `json:"items"`
}

// Reindex loads every property from the wrapped store into the index and
// returns the number of documents written.
func (s *PropertyStore) Reindex(ctx context.Context) (n int, err error) {
	defer store.Observe(Backend, "reindex", time.Now(), &err)

	props, err := s.next.GetAll(ctx)
	if err != nil {
		return 0, err
	}
	if len(props) == 0 {
		return 0, nil
	}

	var buf strings.Builder
	enc := json.NewEncoder(&buf)
	for _, p := range props {
		meta := map[string]interface{}{
			"index": map[string]interface{}{"_id": strconv.Itoa(p.ID)},
		}
		if err := enc.Encode(meta); err != nil {
			return 0, errors.Backend(Backend, "reindex", err)
		}
		if err := enc.Encode(p); err != nil {
			return 0, errors.Backend(Backend, "reindex", err)
		}
	}

	req := esapi.BulkRequest{
		Index:   s.index,
		Body:    strings.NewReader(buf.String()),
		Refresh: "true",
	}
	res, err := req.Do(ctx, s.client)
	if err != nil {
		return 0, errors.Backend(Backend, "reindex", err)
	}
	defer res.Body.Close()

	if res.IsError() {
		return 0, errors.Backend(Backend, "reindex", fmt.Errorf("bulk %s: %s", s.index, res.Status()))
	}

	var decoded bulkResponse
	if err := json.NewDecoder(res.Body).Decode(&decoded); err != nil {
		return 0, errors.Backend(Backend, "reindex", fmt.Errorf("decode bulk response: %w", err))
	}

	for _, item := range decoded.Items {
		for _, result := range item {
			if result.Status < 300 {
				n++
			}
		}
	}
	if decoded.Errors {
		s.logger.Warn("bulk indexing partially failed", map[string]interface{}{
			"indexed": n,
			"total":   len(props),
		})
	}
	s.logger.Info("reindex complete", map[string]interface{}{"index": s.index, "documents": n})
	return n, nil
}
