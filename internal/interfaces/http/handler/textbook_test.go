package handler

import (
	"bytes"
	"encoding/json"
	"errors"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	appRAG "github.com/nymav/drax-tbs/internal/application/rag"
	domainRAG "github.com/nymav/drax-tbs/internal/domain/rag"
	"github.com/nymav/drax-tbs/internal/infrastructure/log"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func setupTextbookRouter(catalog *MockCatalog, runner *MockRunner) *gin.Engine {
	router := gin.New()
	h := &TextbookHandler{catalog: catalog, runner: runner, logger: log.NewModuleLogger("http", "test")}
	router.POST("/api/uploads", h.Upload)
	router.POST("/api/embed/:pdf_id", h.Embed)
	router.GET("/api/textbooks", h.List)
	return router
}

func decodeBody(t *testing.T, w *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	return body
}

func multipartUpload(t *testing.T, field, filename, content string) *http.Request {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	part, err := mw.CreateFormFile(field, filename)
	require.NoError(t, err)
	_, err = part.Write([]byte(content))
	require.NoError(t, err)
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, "/api/uploads", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	return req
}

// TestTextbookHandler_Upload 测试上传
func TestTextbookHandler_Upload(t *testing.T) {
	t.Run("上传成功", func(t *testing.T) {
		catalog := new(MockCatalog)
		catalog.On("Upload", "biology.pdf", "%PDF-1.4").
			Return(&appRAG.UploadResult{PDFID: "abc", Title: "Biology", Author: "Unknown", Pages: 3}, nil)

		w := httptest.NewRecorder()
		setupTextbookRouter(catalog, new(MockRunner)).ServeHTTP(w, multipartUpload(t, "file", "biology.pdf", "%PDF-1.4"))

		assert.Equal(t, http.StatusOK, w.Code)
		data := decodeBody(t, w)["data"].(map[string]interface{})
		assert.Equal(t, "abc", data["pdf_id"])
		assert.Equal(t, float64(3), data["pages"])
		catalog.AssertExpectations(t)
	})

	t.Run("缺少文件字段", func(t *testing.T) {
		w := httptest.NewRecorder()
		setupTextbookRouter(new(MockCatalog), new(MockRunner)).ServeHTTP(w, multipartUpload(t, "other", "a.pdf", "x"))
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	tests := []struct {
		name     string
		err      error
		wantCode int
	}{
		{"空文件", appRAG.ErrEmptyUpload, http.StatusBadRequest},
		{"文件过大", appRAG.ErrUploadTooLarge, http.StatusRequestEntityTooLarge},
		{"写盘失败", errors.New("disk full"), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			catalog := new(MockCatalog)
			catalog.On("Upload", "a.pdf", "x").Return(nil, tt.err)

			w := httptest.NewRecorder()
			setupTextbookRouter(catalog, new(MockRunner)).ServeHTTP(w, multipartUpload(t, "file", "a.pdf", "x"))
			assert.Equal(t, tt.wantCode, w.Code)
		})
	}
}

// TestTextbookHandler_Embed 测试摄取结果与错误映射
func TestTextbookHandler_Embed(t *testing.T) {
	tests := []struct {
		name        string
		result      *appRAG.EmbedResult
		err         error
		wantCode    int
		wantMessage string
	}{
		{"成功", &appRAG.EmbedResult{Status: "embedded", Chunks: 12}, nil, http.StatusOK, "success"},
		{"文件不存在", nil, appRAG.ErrFileNotFound, http.StatusNotFound, "PDF file not found."},
		{
			"没有文本",
			nil, &domainRAG.ExtractionError{Source: "abc.pdf"},
			http.StatusBadRequest, "No text chunks extracted from PDF.",
		},
		{
			"向量数量不一致",
			nil, &domainRAG.EmbeddingMismatchError{Expected: 10, Got: 9},
			http.StatusInternalServerError, "Embedding failure: expected 10 vectors, got 9.",
		},
		{"其它故障", nil, errors.New("qdrant down"), http.StatusInternalServerError, "Embedding failed: qdrant down"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			runner := new(MockRunner)
			if tt.result != nil {
				runner.On("Run", "abc").Return(tt.result, nil)
			} else {
				runner.On("Run", "abc").Return(nil, tt.err)
			}

			w := httptest.NewRecorder()
			setupTextbookRouter(new(MockCatalog), runner).
				ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/api/embed/abc", nil))

			assert.Equal(t, tt.wantCode, w.Code)
			body := decodeBody(t, w)
			assert.Equal(t, tt.wantMessage, body["message"])
			if tt.result != nil {
				data := body["data"].(map[string]interface{})
				assert.Equal(t, "embedded", data["status"])
				assert.Equal(t, float64(12), data["chunks"])
			}
		})
	}
}

// TestTextbookHandler_List 测试教材列表
func TestTextbookHandler_List(t *testing.T) {
	t.Run("空目录返回空数组", func(t *testing.T) {
		catalog := new(MockCatalog)
		catalog.On("List").Return(nil, nil)

		w := httptest.NewRecorder()
		setupTextbookRouter(catalog, new(MockRunner)).ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/textbooks", nil))

		assert.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, []interface{}{}, decodeBody(t, w)["data"])
	})

	t.Run("返回教材", func(t *testing.T) {
		catalog := new(MockCatalog)
		catalog.On("List").Return([]*appRAG.TextbookView{{ID: "a", Title: "Physics", Name: "Physics"}}, nil)

		w := httptest.NewRecorder()
		setupTextbookRouter(catalog, new(MockRunner)).ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/textbooks", nil))

		data := decodeBody(t, w)["data"].([]interface{})
		require.Len(t, data, 1)
		assert.Equal(t, "Physics", data[0].(map[string]interface{})["name"])
	})
}
