package sharedpool

import (
	context "context"
	reflect "reflect"

	gomock "github.com/golang/mock/gomock"
)

// MockFactory is a mock of Factory interface.
type MockFactory[T any] struct {
	ctrl     *gomock.Controller
	recorder *MockFactoryMockRecorder[T]
}

// MockFactoryMockRecorder is the mock recorder for MockFactory.
type MockFactoryMockRecorder[T any] struct {
	mock *MockFactory[T]
}

// NewMockFactory creates a new mock instance.
func NewMockFactory[T any](ctrl *gomock.Controller) *MockFactory[T] {
	mock := &MockFactory[T]{ctrl: ctrl}
	mock.recorder = &MockFactoryMockRecorder[T]{mock}
	return mock
}

// EXPECT returns an object that allows the caller to indicate expected use.
func (m *MockFactory[T]) EXPECT() *MockFactoryMockRecorder[T] {
	return m.recorder
}

// Create mocks base method.
func (m *MockFactory[T]) Create(ctx context.Context, name string) (T, error) {
	m.ctrl.T.Helper()
	ret := m.ctrl.Call(m, "Create", ctx, name)
	ret0, _ := ret[0].(T)
	ret1, _ := ret[1].(error)
	return ret0, ret1
}

// Create indicates an expected call of Create.
func (mr *MockFactoryMockRecorder[T]) Create(ctx, name interface{}) *gomock.Call {
	mr.mock.ctrl.T.Helper()
	return mr.mock.ctrl.RecordCallWithMethodType(mr.mock, "Create", reflect.TypeOf((*MockFactory[T])(nil).Create), ctx, name)
}

// Destroy mocks base method.
func (m *MockFactory[T]) Destroy(instance T) error {
	m.ctrl.T.Helper()
	ret := m.ctrl.Call(m, "Destroy", instance)
	ret0, _ := ret[0].(error)
	return ret0
}

// Destroy indicates an expected call of Destroy.
func (mr *MockFactoryMockRecorder[T]) Destroy(instance interface{}) *gomock.Call {
	mr.mock.ctrl.T.Helper()
	return mr.mock.ctrl.RecordCallWithMethodType(mr.mock, "Destroy", reflect.TypeOf((*MockFactory[T])(nil).Destroy), instance)
}
