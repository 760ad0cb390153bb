package mocks

import (
	"context"

	mock "github.com/stretchr/testify/mock"

	m "mutago.dev/pkg/mutago/internal/model"
)

// MockTestRunnerAdapter is a mock type for the TestRunnerAdapter type.
type MockTestRunnerAdapter struct {
	mock.Mock
}

// MockTestRunnerAdapter_Expecter wraps the mock with typed expectations.
type MockTestRunnerAdapter_Expecter struct {
	mock *mock.Mock
}

// EXPECT returns the typed expecter of the mock.
func (_m *MockTestRunnerAdapter) EXPECT() *MockTestRunnerAdapter_Expecter {
	return &MockTestRunnerAdapter_Expecter{mock: &_m.Mock}
}

// RunGoTest provides a mock function with given fields: ctx, workDir, packages, env
func (_m *MockTestRunnerAdapter) RunGoTest(ctx context.Context, workDir string, packages []string, env []string) (m.TestRun, error) {
	ret := _m.Called(ctx, workDir, packages, env)

	if len(ret) == 0 {
		panic("no return value specified for RunGoTest")
	}

	if rf, ok := ret.Get(0).(func(context.Context, string, []string, []string) (m.TestRun, error)); ok {
		return rf(ctx, workDir, packages, env)
	}

	var r0 m.TestRun
	if v, ok := ret.Get(0).(m.TestRun); ok {
		r0 = v
	}

	return r0, ret.Error(1)
}

// MockTestRunnerAdapter_RunGoTest_Call is a *mock.Call that shadows Run/Return.
type MockTestRunnerAdapter_RunGoTest_Call struct {
	*mock.Call
}

// RunGoTest is a helper method to define mock.On call.
func (_e *MockTestRunnerAdapter_Expecter) RunGoTest(ctx interface{}, workDir interface{}, packages interface{}, env interface{}) *MockTestRunnerAdapter_RunGoTest_Call {
	return &MockTestRunnerAdapter_RunGoTest_Call{Call: _e.mock.On("RunGoTest", ctx, workDir, packages, env)}
}

func (_c *MockTestRunnerAdapter_RunGoTest_Call) Return(run m.TestRun, err error) *MockTestRunnerAdapter_RunGoTest_Call {
	_c.Call.Return(run, err)
	return _c
}

func (_c *MockTestRunnerAdapter_RunGoTest_Call) RunAndReturn(run func(context.Context, string, []string, []string) (m.TestRun, error)) *MockTestRunnerAdapter_RunGoTest_Call {
	_c.Call.Return(run, nil)
	return _c
}

// NewMockTestRunnerAdapter creates a new instance of MockTestRunnerAdapter. It also registers a testing interface on the mock and a cleanup function to assert the mocks expectations.
func NewMockTestRunnerAdapter(t interface {
	mock.TestingT
	Cleanup(func())
}) *MockTestRunnerAdapter {
	mock := &MockTestRunnerAdapter{}
	mock.Mock.Test(t)

	t.Cleanup(func() { mock.AssertExpectations(t) })

	return mock
}
