package callback

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	"github.com/magabrotheeeer/transcribe-hub/internal/gateway"
	"github.com/magabrotheeeer/transcribe-hub/internal/lib/errs"
	"github.com/magabrotheeeer/transcribe-hub/internal/models"
)

const testSecret = "callback-secret"

// MockService реализует интерфейс callback.Service
type MockService struct {
	mock.Mock
}

func (m *MockService) Complete(ctx context.Context, req models.DummyCompleteCallback) error {
	args := m.Called(ctx, req)
	return args.Error(0)
}

func (m *MockService) Fail(ctx context.Context, req models.DummyFailCallback) error {
	args := m.Called(ctx, req)
	return args.Error(0)
}

func TestCallbackHandler(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelDebug}))

	const recID = "7b8a3b54-5c1e-4d2f-9a6b-0f1e2d3c4b5a"
	completeBody := `{"recording_id":"` + recID + `","duration_ms":61500,"segments":[{"idx":0,"start_ms":0,"end_ms":61500,"text":"xin chao"}]}`
	failBody := `{"recording_id":"` + recID + `","status":"FAILED","error_message":"decode error"}`

	tests := []struct {
		name           string
		body           string
		sign           bool
		setupMock      func(*MockService)
		expectedStatus int
		expectedBody   string
	}{
		{
			name: "успешный колбэк завершения",
			body: completeBody,
			sign: true,
			setupMock: func(m *MockService) {
				m.On("Complete", mock.Anything, mock.MatchedBy(func(req models.DummyCompleteCallback) bool {
					return req.RecordingID == recID && req.DurationMS == 61500 && len(req.Segments) == 1
				})).Return(nil)
			},
			expectedStatus: http.StatusOK,
			expectedBody:   `"status":"OK"`,
		},
		{
			name: "колбэк ошибки транскрибации",
			body: failBody,
			sign: true,
			setupMock: func(m *MockService) {
				m.On("Fail", mock.Anything, mock.MatchedBy(func(req models.DummyFailCallback) bool {
					return req.RecordingID == recID && req.ErrorMessage == "decode error"
				})).Return(nil)
			},
			expectedStatus: http.StatusOK,
			expectedBody:   `"status":"OK"`,
		},
		{
			name:           "неподписанный колбэк отклоняется",
			body:           completeBody,
			sign:           false,
			setupMock:      func(_ *MockService) {},
			expectedStatus: http.StatusUnauthorized,
			expectedBody:   `invalid signature`,
		},
		{
			name:           "некорректный JSON",
			body:           `{not json`,
			sign:           true,
			setupMock:      func(_ *MockService) {},
			expectedStatus: http.StatusBadRequest,
			expectedBody:   `invalid request body`,
		},
		{
			name:           "колбэк без сегментов отклоняется валидацией",
			body:           `{"recording_id":"` + recID + `","duration_ms":61500}`,
			sign:           true,
			setupMock:      func(_ *MockService) {},
			expectedStatus: http.StatusUnprocessableEntity,
			expectedBody:   `"status":"Error"`,
		},
		{
			name: "колбэк для неизвестной записи отбрасывается с успехом",
			body: completeBody,
			sign: true,
			setupMock: func(m *MockService) {
				m.On("Complete", mock.Anything, mock.Anything).
					Return(errs.ErrCallbackOnUnknownRecording)
			},
			expectedStatus: http.StatusOK,
			expectedBody:   `"status":"OK"`,
		},
		{
			name: "повторный колбэк для завершённой записи отбрасывается",
			body: completeBody,
			sign: true,
			setupMock: func(m *MockService) {
				m.On("Complete", mock.Anything, mock.Anything).
					Return(errs.ErrCallbackOnTerminalRecording)
			},
			expectedStatus: http.StatusOK,
			expectedBody:   `"status":"OK"`,
		},
		{
			name: "ошибка сервиса",
			body: completeBody,
			sign: true,
			setupMock: func(m *MockService) {
				m.On("Complete", mock.Anything, mock.Anything).
					Return(errors.New("db error"))
			},
			expectedStatus: http.StatusInternalServerError,
			expectedBody:   `could not process callback`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mockService := new(MockService)
			tt.setupMock(mockService)

			handler := New(logger, mockService, testSecret)

			req := httptest.NewRequest(http.MethodPost, "/callbacks/transcription", strings.NewReader(tt.body))
			if tt.sign {
				req.Header.Set(gateway.SignatureHeader, gateway.Sign(testSecret, []byte(tt.body)))
			}

			w := httptest.NewRecorder()
			handler.ServeHTTP(w, req)

			assert.Equal(t, tt.expectedStatus, w.Code)
			assert.Contains(t, w.Body.String(), tt.expectedBody)

			mockService.AssertExpectations(t)
		})
	}
}

func TestCallbackHandler_TamperedBody(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelDebug}))
	mockService := new(MockService)
	handler := New(logger, mockService, testSecret)

	original := `{"recording_id":"7b8a3b54-5c1e-4d2f-9a6b-0f1e2d3c4b5a","status":"FAILED","error_message":"x"}`
	tampered := strings.Replace(original, `"x"`, `"y"`, 1)

	req := httptest.NewRequest(http.MethodPost, "/callbacks/transcription", strings.NewReader(tampered))
	req.Header.Set(gateway.SignatureHeader, gateway.Sign(testSecret, []byte(original)))

	w := httptest.NewRecorder()
	handler.ServeHTTP(w, req)

	assert.Equal(t, http.StatusUnauthorized, w.Code)
	mockService.AssertExpectations(t)
}
