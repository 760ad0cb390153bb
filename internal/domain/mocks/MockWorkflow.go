package mocks

import (
	"context"

	mock "github.com/stretchr/testify/mock"

	"mutago.dev/pkg/mutago/internal/domain"
)

// MockWorkflow is a mock type for the Workflow type.
type MockWorkflow struct {
	mock.Mock
}

// MockWorkflow_Expecter wraps the mock with typed expectations.
type MockWorkflow_Expecter struct {
	mock *mock.Mock
}

// EXPECT returns the typed expecter of the mock.
func (_m *MockWorkflow) EXPECT() *MockWorkflow_Expecter {
	return &MockWorkflow_Expecter{mock: &_m.Mock}
}

// Run provides a mock function with given fields: ctx, args
func (_m *MockWorkflow) Run(ctx context.Context, args domain.RunArgs) (int, error) {
	ret := _m.Called(ctx, args)

	if len(ret) == 0 {
		panic("no return value specified for Run")
	}

	if rf, ok := ret.Get(0).(func(context.Context, domain.RunArgs) (int, error)); ok {
		return rf(ctx, args)
	}

	var r0 int
	if v, ok := ret.Get(0).(int); ok {
		r0 = v
	}

	return r0, ret.Error(1)
}

// MockWorkflow_Run_Call is a *mock.Call that shadows Run/Return.
type MockWorkflow_Run_Call struct {
	*mock.Call
}

// Run is a helper method to define mock.On call.
func (_e *MockWorkflow_Expecter) Run(ctx interface{}, args interface{}) *MockWorkflow_Run_Call {
	return &MockWorkflow_Run_Call{Call: _e.mock.On("Run", ctx, args)}
}

func (_c *MockWorkflow_Run_Call) Return(survived int, err error) *MockWorkflow_Run_Call {
	_c.Call.Return(survived, err)
	return _c
}

func (_c *MockWorkflow_Run_Call) RunAndReturn(run func(context.Context, domain.RunArgs) (int, error)) *MockWorkflow_Run_Call {
	_c.Call.Return(run)
	return _c
}

// List provides a mock function with given fields: ctx, args
func (_m *MockWorkflow) List(ctx context.Context, args domain.ListArgs) error {
	ret := _m.Called(ctx, args)

	if len(ret) == 0 {
		panic("no return value specified for List")
	}

	if rf, ok := ret.Get(0).(func(context.Context, domain.ListArgs) error); ok {
		return rf(ctx, args)
	}

	return ret.Error(0)
}

// MockWorkflow_List_Call is a *mock.Call that shadows Run/Return.
type MockWorkflow_List_Call struct {
	*mock.Call
}

// List is a helper method to define mock.On call.
func (_e *MockWorkflow_Expecter) List(ctx interface{}, args interface{}) *MockWorkflow_List_Call {
	return &MockWorkflow_List_Call{Call: _e.mock.On("List", ctx, args)}
}

func (_c *MockWorkflow_List_Call) Return(err error) *MockWorkflow_List_Call {
	_c.Call.Return(err)
	return _c
}

// ListOperators provides a mock function with given fields: ctx
func (_m *MockWorkflow) ListOperators(ctx context.Context) error {
	ret := _m.Called(ctx)

	if len(ret) == 0 {
		panic("no return value specified for ListOperators")
	}

	if rf, ok := ret.Get(0).(func(context.Context) error); ok {
		return rf(ctx)
	}

	return ret.Error(0)
}

// MockWorkflow_ListOperators_Call is a *mock.Call that shadows Run/Return.
type MockWorkflow_ListOperators_Call struct {
	*mock.Call
}

// ListOperators is a helper method to define mock.On call.
func (_e *MockWorkflow_Expecter) ListOperators(ctx interface{}) *MockWorkflow_ListOperators_Call {
	return &MockWorkflow_ListOperators_Call{Call: _e.mock.On("ListOperators", ctx)}
}

func (_c *MockWorkflow_ListOperators_Call) Return(err error) *MockWorkflow_ListOperators_Call {
	_c.Call.Return(err)
	return _c
}

// View provides a mock function with given fields: ctx, args
func (_m *MockWorkflow) View(ctx context.Context, args domain.ViewArgs) error {
	ret := _m.Called(ctx, args)

	if len(ret) == 0 {
		panic("no return value specified for View")
	}

	if rf, ok := ret.Get(0).(func(context.Context, domain.ViewArgs) error); ok {
		return rf(ctx, args)
	}

	return ret.Error(0)
}

// MockWorkflow_View_Call is a *mock.Call that shadows Run/Return.
type MockWorkflow_View_Call struct {
	*mock.Call
}

// View is a helper method to define mock.On call.
func (_e *MockWorkflow_Expecter) View(ctx interface{}, args interface{}) *MockWorkflow_View_Call {
	return &MockWorkflow_View_Call{Call: _e.mock.On("View", ctx, args)}
}

func (_c *MockWorkflow_View_Call) Return(err error) *MockWorkflow_View_Call {
	_c.Call.Return(err)
	return _c
}

// NewMockWorkflow creates a new instance of MockWorkflow. It also registers a
// testing interface on the mock and a cleanup function to assert the mocks
// expectations.
func NewMockWorkflow(t interface {
	mock.TestingT
	Cleanup(func())
}) *MockWorkflow {
	mock := &MockWorkflow{}
	mock.Mock.Test(t)

	t.Cleanup(func() { mock.AssertExpectations(t) })

	return mock
}
