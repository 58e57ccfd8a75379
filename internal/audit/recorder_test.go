package audit

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"muhtaref/internal/model"
)

type MockSink struct {
	mock.Mock
}

func (m *MockSink) Create(ctx context.Context, entry *model.AuditLog) error {
	args := m.Called(ctx, entry)
	return args.Error(0)
}

type panickingSink struct{}

func (panickingSink) Create(context.Context, *model.AuditLog) error {
	panic("sink exploded")
}

func TestRecorder_Record(t *testing.T) {
	sink := new(MockSink)
	userID := uuid.New()
	sink.On("Create", mock.Anything, mock.MatchedBy(func(e *model.AuditLog) bool {
		return e.Action == model.ActionLogin && e.Level == model.LogLevelSuccess && *e.UserID == userID
	})).Return(nil)

	NewRecorder(sink, nil).Record(context.Background(), Entry{
		Action:  model.ActionLogin,
		Level:   model.LogLevelSuccess,
		Message: "login succeeded",
		UserID:  Ref(userID),
	})

	sink.AssertExpectations(t)
}

func TestRecorder_SwallowsSinkErrors(t *testing.T) {
	core, logs := observer.New(zap.ErrorLevel)
	sink := new(MockSink)
	sink.On("Create", mock.Anything, mock.Anything).Return(errors.New("db down"))

	assert.NotPanics(t, func() {
		NewRecorder(sink, zap.New(core)).Record(context.Background(), Entry{Action: model.ActionRegister, Level: model.LogLevelInfo})
	})
	assert.Equal(t, 1, logs.FilterMessage("audit write failed").Len())
}

func TestRecorder_ContainsPanics(t *testing.T) {
	core, logs := observer.New(zap.ErrorLevel)

	assert.NotPanics(t, func() {
		NewRecorder(panickingSink{}, zap.New(core)).Record(context.Background(), Entry{Action: model.ActionLogin})
	})
	assert.Equal(t, 1, logs.FilterMessage("audit sink panicked").Len())
}

func TestRecorder_NilIsNoop(t *testing.T) {
	var r *Recorder
	assert.NotPanics(t, func() { r.Record(context.Background(), Entry{}) })
}
