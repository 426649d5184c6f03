package search

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"sort"
	"strconv"
	"strings"
	"sync"
	"testing"

	"github.com/nextolk/backend/internal/cache"
	"github.com/nextolk/backend/internal/database"
	"github.com/nextolk/backend/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
	"gorm.io/gorm"
)

// fakeES speaks just enough of the Elasticsearch REST API for the client:
// index existence and creation, document put/delete and a substring search.
type fakeES struct {
	mu         sync.Mutex
	indices    map[string]bool
	docs       map[string]map[string]json.RawMessage
	creates    int
	searches   int
	failSearch bool
}

func newFakeES() *fakeES {
	return &fakeES{indices: map[string]bool{}, docs: map[string]map[string]json.RawMessage{}}
}

func (f *fakeES) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()

	w.Header().Set("X-Elastic-Product", "Elasticsearch")
	w.Header().Set("Content-Type", "application/json")
	parts := strings.Split(strings.Trim(r.URL.Path, "/"), "/")

	switch {
	case r.URL.Path == "/":
		io.WriteString(w, `{"version":{"number":"8.19.1"},"tagline":"You Know, for Search"}`)

	case len(parts) == 1 && r.Method == http.MethodHead:
		if !f.indices[parts[0]] {
			w.WriteHeader(http.StatusNotFound)
		}

	case len(parts) == 1 && r.Method == http.MethodPut:
		f.indices[parts[0]] = true
		f.creates++
		io.WriteString(w, `{"acknowledged":true}`)

	case len(parts) == 3 && parts[1] == "_doc" && r.Method == http.MethodPut:
		body, _ := io.ReadAll(r.Body)
		if f.docs[parts[0]] == nil {
			f.docs[parts[0]] = map[string]json.RawMessage{}
		}
		f.docs[parts[0]][parts[2]] = body
		w.WriteHeader(http.StatusCreated)
		io.WriteString(w, `{"result":"created"}`)

	case len(parts) == 3 && parts[1] == "_doc" && r.Method == http.MethodDelete:
		if _, ok := f.docs[parts[0]][parts[2]]; !ok {
			w.WriteHeader(http.StatusNotFound)
			io.WriteString(w, `{"result":"not_found"}`)
			return
		}
		delete(f.docs[parts[0]], parts[2])
		io.WriteString(w, `{"result":"deleted"}`)

	case len(parts) == 2 && parts[1] == "_search":
		f.searches++
		if f.failSearch {
			w.WriteHeader(http.StatusInternalServerError)
			io.WriteString(w, `{"error":{"type":"boom"}}`)
			return
		}
		var req map[string]interface{}
		_ = json.NewDecoder(r.Body).Decode(&req)
		needle := strings.ToLower(findMultiMatchQuery(req))

		var ids []int
		for id, doc := range f.docs[parts[0]] {
			if needle == "" || strings.Contains(strings.ToLower(string(doc)), needle) {
				n, _ := strconv.Atoi(id)
				ids = append(ids, n)
			}
		}
		sort.Sort(sort.Reverse(sort.IntSlice(ids)))

		hits := make([]map[string]interface{}, 0, len(ids))
		for _, id := range ids {
			hits = append(hits, map[string]interface{}{"_id": strconv.Itoa(id)})
		}
		json.NewEncoder(w).Encode(map[string]interface{}{
			"hits": map[string]interface{}{
				"total": map[string]interface{}{"value": len(ids)},
				"hits":  hits,
			},
		})

	default:
		w.WriteHeader(http.StatusBadRequest)
		io.WriteString(w, `{"error":"unsupported"}`)
	}
}

func findMultiMatchQuery(v interface{}) string {
	m, ok := v.(map[string]interface{})
	if !ok {
		return ""
	}
	if mm, ok := m["multi_match"].(map[string]interface{}); ok {
		q, _ := mm["query"].(string)
		return q
	}
	for _, child := range m {
		if q := findMultiMatchQuery(child); q != "" {
			return q
		}
	}
	return ""
}

type SearchSuite struct {
	suite.Suite
	db     *gorm.DB
	fake   *fakeES
	server *httptest.Server
	client *Client
	svc    *Service
	ctx    context.Context

	user     models.User
	dance    models.Video
	cooking  models.Video
	pending  models.Video
	category models.Category
	lamp     models.Product
}

func TestSearchSuite(t *testing.T) {
	suite.Run(t, new(SearchSuite))
}

func (s *SearchSuite) SetupTest() {
	db, err := database.OpenSQLite(":memory:", false)
	s.Require().NoError(err)
	s.Require().NoError(database.MigrateDB(db))
	s.db = db
	s.ctx = context.Background()

	s.fake = newFakeES()
	s.server = httptest.NewServer(s.fake)
	s.client, err = newClient(s.server.URL, http.DefaultTransport)
	s.Require().NoError(err)
	s.svc = NewService(s.client, db, cache.NewMemoryStore())

	s.user = models.User{Username: "dancer", PasswordHash: "x"}
	s.Require().NoError(db.Create(&s.user).Error)

	s.dance = models.Video{UserID: s.user.ID, VideoFile: "videos/a_transcoded.mp4", Caption: "Friday dance",
		Hashtags: models.StringList{"dance"}, ProcessingStatus: models.ProcessingComplete, LikesCount: 4}
	s.cooking = models.Video{UserID: s.user.ID, VideoFile: "videos/b_transcoded.mp4", Caption: "Pasta night",
		Hashtags: models.StringList{"cooking"}, ProcessingStatus: models.ProcessingComplete}
	s.pending = models.Video{UserID: s.user.ID, VideoFile: "videos/c.mov", Caption: "dance rehearsal"}
	for _, v := range []*models.Video{&s.dance, &s.cooking, &s.pending} {
		s.Require().NoError(db.Create(v).Error)
	}

	s.category = models.Category{Name: "Home"}
	s.Require().NoError(db.Create(&s.category).Error)
	s.lamp = models.Product{SellerID: s.user.ID, CategoryID: &s.category.ID, Name: "Desk lamp",
		Description: "Warm 100% LED light", Price: 2599, Stock: 3, IsAvailable: true}
	s.Require().NoError(db.Create(&s.lamp).Error)
}

func (s *SearchSuite) TearDownTest() {
	s.server.Close()
	sqlDB, _ := s.db.DB()
	sqlDB.Close()
}

func (s *SearchSuite) TestInitializeIndicesIsIdempotent() {
	s.Require().NoError(s.client.Ping(s.ctx))
	s.Require().NoError(s.client.InitializeIndices(s.ctx))
	s.Require().NoError(s.client.InitializeIndices(s.ctx))
	s.Equal(2, s.fake.creates)
	s.True(s.fake.indices[IndexVideos])
	s.True(s.fake.indices[IndexProducts])
}

func (s *SearchSuite) TestIndexVideoOnlyIndexesCompleted() {
	s.Require().NoError(s.svc.IndexVideo(s.ctx, s.dance.ID))
	s.Require().NoError(s.svc.IndexVideo(s.ctx, s.pending.ID))

	docs := s.fake.docs[IndexVideos]
	s.Len(docs, 1)
	var doc VideoDoc
	s.Require().NoError(json.Unmarshal(docs[strconv.Itoa(int(s.dance.ID))], &doc))
	s.Equal("dancer", doc.Username)
	s.Equal([]string{"dance"}, doc.Hashtags)
	s.Equal(4, doc.LikesCount)
}

func (s *SearchSuite) TestSearchVideosThroughElasticsearch() {
	s.Require().NoError(s.svc.IndexVideo(s.ctx, s.dance.ID))
	s.Require().NoError(s.svc.IndexVideo(s.ctx, s.cooking.ID))

	res, err := s.svc.Search(s.ctx, KindVideos, "dance", 20, 0)
	s.Require().NoError(err)
	s.Equal(BackendElasticsearch, res.Backend)
	s.Equal(int64(1), res.Total)
	s.Require().Len(res.Videos, 1)
	s.Equal(s.dance.ID, res.Videos[0].ID)
	s.Require().NotNil(res.Videos[0].User)
	s.Equal("dancer", res.Videos[0].User.Username)

	all, err := s.svc.Search(s.ctx, KindVideos, "", 20, 0)
	s.Require().NoError(err)
	s.Require().Len(all.Videos, 2)
	s.Equal(s.cooking.ID, all.Videos[0].ID, "rank order from the engine is kept")
}

func (s *SearchSuite) TestSearchPagesAreCachedUntilReindex() {
	s.Require().NoError(s.svc.IndexVideo(s.ctx, s.dance.ID))

	_, err := s.svc.Search(s.ctx, KindVideos, "dance", 20, 0)
	s.Require().NoError(err)
	_, err = s.svc.Search(s.ctx, KindVideos, "dance", 20, 0)
	s.Require().NoError(err)
	s.Equal(1, s.fake.searches)

	s.Require().NoError(s.svc.IndexVideo(s.ctx, s.cooking.ID))
	_, err = s.svc.Search(s.ctx, KindVideos, "dance", 20, 0)
	s.Require().NoError(err)
	s.Equal(2, s.fake.searches)
}

func (s *SearchSuite) TestElasticsearchFailureFallsBackToDatabase() {
	s.fake.failSearch = true

	res, err := s.svc.Search(s.ctx, KindVideos, "dance", 20, 0)
	s.Require().NoError(err)
	s.Equal(BackendDatabase, res.Backend)
	s.Require().Len(res.Videos, 1, "pending videos are not searchable")
	s.Equal(s.dance.ID, res.Videos[0].ID)
}

func (s *SearchSuite) TestProductsIndexAndDelete() {
	s.Require().NoError(s.svc.IndexProduct(s.ctx, s.lamp.ID))
	var doc ProductDoc
	s.Require().NoError(json.Unmarshal(s.fake.docs[IndexProducts][strconv.Itoa(int(s.lamp.ID))], &doc))
	s.Equal("Home", doc.CategoryName)
	s.Equal(25.99, doc.Price)

	res, err := s.svc.Search(s.ctx, KindProducts, "lamp", 20, 0)
	s.Require().NoError(err)
	s.Require().Len(res.Products, 1)
	s.Require().NotNil(res.Products[0].Category)

	s.Require().NoError(s.svc.DeleteProduct(s.ctx, s.lamp.ID))
	s.Require().NoError(s.svc.DeleteProduct(s.ctx, s.lamp.ID), "missing documents are not an error")
	s.Empty(s.fake.docs[IndexProducts])
}

func (s *SearchSuite) TestDatabaseFallback() {
	svc := NewService(nil, s.db, nil)
	s.False(svc.Enabled())
	s.NoError(svc.IndexVideo(s.ctx, s.dance.ID))

	res, err := svc.Search(s.ctx, KindVideos, "#COOKING", 20, 0)
	s.Require().NoError(err)
	s.Equal(BackendDatabase, res.Backend)
	s.Require().Len(res.Videos, 1)
	s.Equal(s.cooking.ID, res.Videos[0].ID)

	res, err = svc.Search(s.ctx, KindProducts, "100%", 20, 0)
	s.Require().NoError(err)
	s.Require().Len(res.Products, 1)
	s.Equal(int64(1), res.Total)

	res, err = svc.Search(s.ctx, KindProducts, "50%", 20, 0)
	s.Require().NoError(err)
	s.Empty(res.Products, "percent signs match literally")

	res, err = svc.Search(s.ctx, KindVideos, "", 1, 0)
	s.Require().NoError(err)
	s.Equal(int64(2), res.Total)
	s.Len(res.Videos, 1)
}

func (s *SearchSuite) TestReconcile() {
	n, err := s.svc.Reconcile(s.ctx, 0)
	s.Require().NoError(err)
	s.Equal(3, n, "two completed videos and one product")
	s.Len(s.fake.docs[IndexVideos], 2)

	n, err = NewService(nil, s.db, nil).Reconcile(s.ctx, 10)
	s.NoError(err)
	s.Zero(n)
}

func TestParseKind(t *testing.T) {
	for in, want := range map[string]Kind{"": KindVideos, "videos": KindVideos, "Products": KindProducts, "product": KindProducts} {
		got, ok := ParseKind(in)
		assert.True(t, ok, in)
		assert.Equal(t, want, got, in)
	}
	_, ok := ParseKind("users")
	assert.False(t, ok)
}

func TestBuildQuery(t *testing.T) {
	q := buildQuery(IndexProducts, "lamp", 10, 20)
	assert.Equal(t, 10, q["size"])
	assert.Equal(t, 20, q["from"])
	data, err := json.Marshal(q)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"is_available":true`)
	assert.Contains(t, string(data), `"name^3"`)

	data, _ = json.Marshal(buildQuery(IndexVideos, "", 10, 0))
	assert.Contains(t, string(data), "match_all")
	assert.Contains(t, string(data), "likes_count")
}

func TestLikePattern(t *testing.T) {
	assert.Equal(t, `%50\%\_off%`, likePattern("50%_OFF"))
}
