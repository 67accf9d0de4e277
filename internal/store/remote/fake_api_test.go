package remote

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sort"
	"strconv"
	"strings"
	"sync"
	"testing"

	"property-browser/internal/common/config"
	"property-browser/internal/common/logger"
)

// fakeRecordAPI is an in-memory stand-in for the hosted record API. It
// evaluates where conditions the way the real service does: Contains is a
// case-insensitive match on the named field only.
type fakeRecordAPI struct {
	t      *testing.T
	mu     sync.Mutex
	tables map[string][]map[string]interface{}
	nextID map[string]int

	fetches     []FetchParams
	failNext    int
	rejectWrite bool
	unsuccess   bool
}

func newFakeRecordAPI(t *testing.T) *fakeRecordAPI {
	return &fakeRecordAPI{
		t:      t,
		tables: map[string][]map[string]interface{}{},
		nextID: map[string]int{},
	}
}

func (f *fakeRecordAPI) seed(table string, rows ...map[string]interface{}) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, row := range rows {
		id := int(row["Id"].(float64))
		f.tables[table] = append(f.tables[table], row)
		if id >= f.nextID[table] {
			f.nextID[table] = id + 1
		}
	}
}

func (f *fakeRecordAPI) rows(table string) []map[string]interface{} {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]map[string]interface{}(nil), f.tables[table]...)
}

func (f *fakeRecordAPI) recordedFetches() []FetchParams {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]FetchParams(nil), f.fetches...)
}

// configure mutates the fake's failure switches under its lock.
func (f *fakeRecordAPI) configure(fn func(f *fakeRecordAPI)) {
	f.mu.Lock()
	defer f.mu.Unlock()
	fn(f)
}

func (f *fakeRecordAPI) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if r.Header.Get(headerProjectID) != "test-project" || r.Header.Get(headerPublicKey) != "test-key" {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}
	if f.failNext > 0 {
		f.failNext--
		http.Error(w, "temporarily unavailable", http.StatusServiceUnavailable)
		return
	}
	if f.unsuccess {
		writeJSON(w, map[string]interface{}{"success": false, "message": "quota exceeded"})
		return
	}

	parts := strings.Split(strings.Trim(r.URL.Path, "/"), "/")
	if len(parts) < 2 || parts[0] != "records" {
		http.NotFound(w, r)
		return
	}
	table := parts[1]

	switch {
	case r.Method == http.MethodPost && len(parts) == 3 && parts[2] == "fetch":
		var params FetchParams
		_ = json.NewDecoder(r.Body).Decode(&params)
		f.fetches = append(f.fetches, params)
		writeJSON(w, map[string]interface{}{"success": true, "data": f.query(table, params)})

	case r.Method == http.MethodGet && len(parts) == 3:
		id, _ := strconv.Atoi(parts[2])
		if row := f.find(table, id); row != nil {
			writeJSON(w, map[string]interface{}{"success": true, "data": row})
			return
		}
		writeJSON(w, map[string]interface{}{"success": false, "message": "Record not found"})

	case r.Method == http.MethodPost && len(parts) == 2:
		var body struct {
			Records []map[string]interface{} `json:"records"`
		}
		_ = json.NewDecoder(r.Body).Decode(&body)
		if f.rejectWrite {
			writeJSON(w, map[string]interface{}{"success": true, "results": []interface{}{
				map[string]interface{}{"success": false, "message": "Field price is required"},
			}})
			return
		}
		var results []interface{}
		for _, rec := range body.Records {
			if f.nextID[table] == 0 {
				f.nextID[table] = 1
			}
			rec["Id"] = float64(f.nextID[table])
			f.nextID[table]++
			f.tables[table] = append(f.tables[table], rec)
			results = append(results, map[string]interface{}{"success": true, "data": rec})
		}
		writeJSON(w, map[string]interface{}{"success": true, "results": results})

	case r.Method == http.MethodPatch && len(parts) == 2:
		var body struct {
			Records []map[string]interface{} `json:"records"`
		}
		_ = json.NewDecoder(r.Body).Decode(&body)
		var results []interface{}
		for _, rec := range body.Records {
			row := f.find(table, int(rec["Id"].(float64)))
			if row == nil {
				results = append(results, map[string]interface{}{"success": false, "message": "Record not found"})
				continue
			}
			for k, v := range rec {
				row[k] = v
			}
			results = append(results, map[string]interface{}{"success": true, "data": row})
		}
		writeJSON(w, map[string]interface{}{"success": true, "results": results})

	case r.Method == http.MethodDelete && len(parts) == 2:
		var body struct {
			RecordIds []int `json:"RecordIds"`
		}
		_ = json.NewDecoder(r.Body).Decode(&body)
		var results []interface{}
		for _, id := range body.RecordIds {
			kept := f.tables[table][:0]
			for _, row := range f.tables[table] {
				if int(row["Id"].(float64)) != id {
					kept = append(kept, row)
				}
			}
			f.tables[table] = kept
			results = append(results, map[string]interface{}{"success": true})
		}
		writeJSON(w, map[string]interface{}{"success": true, "results": results})

	default:
		http.Error(w, "unsupported", http.StatusMethodNotAllowed)
	}
}

func (f *fakeRecordAPI) find(table string, id int) map[string]interface{} {
	for _, row := range f.tables[table] {
		if int(row["Id"].(float64)) == id {
			return row
		}
	}
	return nil
}

func (f *fakeRecordAPI) query(table string, params FetchParams) []map[string]interface{} {
	out := []map[string]interface{}{}
	for _, row := range f.tables[table] {
		if matchesAll(row, params.Where) {
			out = append(out, row)
		}
	}
	for _, ob := range params.OrderBy {
		field := ob.FieldName
		desc := ob.SortType == "DESC"
		sort.SliceStable(out, func(i, j int) bool {
			a, _ := out[i][field].(string)
			b, _ := out[j][field].(string)
			if desc {
				return a > b
			}
			return a < b
		})
	}
	return out
}

func matchesAll(row map[string]interface{}, where []Condition) bool {
	for _, c := range where {
		if !matchesCondition(row[c.FieldName], c) {
			return false
		}
	}
	return true
}

func matchesCondition(v interface{}, c Condition) bool {
	switch c.Operator {
	case OpGreaterThanOrEqualTo, OpLessThanOrEqualTo, OpEqualTo:
		n, _ := v.(float64)
		want, _ := strconv.ParseFloat(c.Values[0], 64)
		switch c.Operator {
		case OpGreaterThanOrEqualTo:
			return n >= want
		case OpLessThanOrEqualTo:
			return n <= want
		default:
			return n == want
		}
	case OpExactMatch:
		s, _ := v.(string)
		for _, want := range c.Values {
			if s == want {
				return true
			}
		}
		return false
	case OpContains:
		s, _ := v.(string)
		return strings.Contains(strings.ToLower(s), strings.ToLower(c.Values[0]))
	}
	return false
}

func writeJSON(w http.ResponseWriter, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(v)
}

// ==========================
// Test Helper Functions
// ==========================

func createTestClient(t *testing.T, api *fakeRecordAPI) *Client {
	t.Helper()
	srv := httptest.NewServer(api)
	t.Cleanup(srv.Close)

	c, err := NewClient(config.RemoteConfig{
		BaseURL:   srv.URL + "/",
		ProjectID: "test-project",
		PublicKey: "test-key",
		Timeout:   2000,
	}, nil, logger.NewTestLogger(t))
	if err != nil {
		t.Fatalf("create client: %v", err)
	}
	return c
}

func propertyRow(id int, title, propertyType string, price, beds int, baths float64, sqft int, address, description, listed string) map[string]interface{} {
	return map[string]interface{}{
		"Id":            float64(id),
		"Name":          title,
		"title":         title,
		"price":         float64(price),
		"address":       address,
		"bedrooms":      float64(beds),
		"bathrooms":     baths,
		"square_feet":   float64(sqft),
		"property_type": propertyType,
		"images":        "https://img.example/" + strconv.Itoa(id) + "-a.jpg\n\nhttps://img.example/" + strconv.Itoa(id) + "-b.jpg\n",
		"description":   description,
		"features":      "Garage\nPool",
		"latitude":      30.27,
		"longitude":     -97.74,
		"year_built":    float64(2001),
		"listing_date":  listed,
	}
}

func seedProperties(api *fakeRecordAPI) {
	api.seed(TableProperty,
		propertyRow(1, "Downtown Loft", "Condo", 450000, 2, 2, 1200, "123 Main St, Austin", "Open plan loft", "2024-03-15T00:00:00Z"),
		propertyRow(2, "Family Home", "House", 675000, 4, 3, 2800, "456 Oak Ave, Austin", "Large yard near lake", "2024-03-10T00:00:00Z"),
		propertyRow(3, "Lake View Condo", "Condo", 365000, 1, 1.5, 950, "147 Lake Dr, Austin", "Balcony", "2024-03-16T00:00:00Z"),
		propertyRow(4, "Penthouse", "Condo", 890000, 3, 3, 2100, "321 Congress Ave, Austin", "Skyline views", "2024-03-08T00:00:00Z"),
	)
}
