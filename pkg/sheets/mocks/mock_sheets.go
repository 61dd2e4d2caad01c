// Package mocks provides test doubles for the sheets backends.
package mocks

import (
	"context"

	sheets "github.com/sells-group/violation-assistant/pkg/sheets"
	mock "github.com/stretchr/testify/mock"
)

// MockClient is a mock type for the Client interface.
type MockClient struct {
	mock.Mock
}

// Open provides a mock function with given fields: ctx, spreadsheetID
func (_m *MockClient) Open(ctx context.Context, spreadsheetID string) (sheets.Spreadsheet, error) {
	ret := _m.Called(ctx, spreadsheetID)

	if len(ret) == 0 {
		panic("no return value specified for Open")
	}

	var r0 sheets.Spreadsheet
	if ret.Get(0) != nil {
		r0 = ret.Get(0).(sheets.Spreadsheet)
	}
	return r0, ret.Error(1)
}

// MockSpreadsheet is a mock type for the Spreadsheet interface.
type MockSpreadsheet struct {
	mock.Mock
}

// Worksheet provides a mock function with given fields: ctx, index
func (_m *MockSpreadsheet) Worksheet(ctx context.Context, index int) (sheets.Worksheet, error) {
	ret := _m.Called(ctx, index)

	if len(ret) == 0 {
		panic("no return value specified for Worksheet")
	}

	var r0 sheets.Worksheet
	if ret.Get(0) != nil {
		r0 = ret.Get(0).(sheets.Worksheet)
	}
	return r0, ret.Error(1)
}

// MockWorksheet is a mock type for the Worksheet interface.
type MockWorksheet struct {
	mock.Mock
}

// AppendRow provides a mock function with given fields: ctx, values
func (_m *MockWorksheet) AppendRow(ctx context.Context, values []string) error {
	ret := _m.Called(ctx, values)

	if len(ret) == 0 {
		panic("no return value specified for AppendRow")
	}
	return ret.Error(0)
}

// RowValues provides a mock function with given fields: ctx, row
func (_m *MockWorksheet) RowValues(ctx context.Context, row int) ([]string, error) {
	ret := _m.Called(ctx, row)

	if len(ret) == 0 {
		panic("no return value specified for RowValues")
	}

	var r0 []string
	if ret.Get(0) != nil {
		r0 = ret.Get(0).([]string)
	}
	return r0, ret.Error(1)
}
