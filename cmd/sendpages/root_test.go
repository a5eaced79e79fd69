package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"dailypages/internal/delivery"
	runnerMocks "dailypages/internal/delivery/mocks"
	"dailypages/internal/repository"
	"dailypages/internal/service"
	serviceMocks "dailypages/internal/service/mocks"
)

func runCmd(t *testing.T, svc *serviceMocks.MockDeliveryService, args ...string) (string, bool, error) {
	t.Helper()
	closed := false
	cmd := newRootCmd(func(context.Context) (trigger, func() error, error) {
		return svc, func() error { closed = true; return nil }, nil
	})
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)
	err := cmd.ExecuteContext(context.Background())
	return out.String(), closed, err
}

func sampleReport() *delivery.Report {
	start := time.Date(2026, 3, 1, 6, 30, 0, 0, time.UTC)
	return &delivery.Report{
		Scope:      "all",
		Trigger:    delivery.TriggerOnDemand,
		StartedAt:  start,
		FinishedAt: start.Add(1500 * time.Millisecond),
		Results: []delivery.Result{
			{ReaderEmail: "a@example.com", DocumentID: "doc-1", Outcome: delivery.OutcomeDelivered},
			{ReaderEmail: "b@example.com", DocumentID: "doc-2", Outcome: delivery.OutcomeSendFailed, Error: "sendgrid status 503"},
		},
		Counts: map[delivery.Outcome]int{delivery.OutcomeDelivered: 1, delivery.OutcomeSendFailed: 1},
	}
}

func TestRootCmd_Summary(t *testing.T) {
	svc := new(serviceMocks.MockDeliveryService)
	svc.On("Trigger", mock.Anything, "ALL", "").Return(sampleReport(), nil).Once()

	out, closed, err := runCmd(t, svc, "ALL")

	require.NoError(t, err)
	assert.True(t, closed)
	assert.Contains(t, out, "Pass all (on_demand) finished in 1.5s")
	assert.Contains(t, out, "delivered")
	assert.Contains(t, out, "! send_failed b@example.com/doc-2: sendgrid status 503")
	svc.AssertExpectations(t)
}

func TestRootCmd_JSONWithDocument(t *testing.T) {
	svc := new(serviceMocks.MockDeliveryService)
	svc.On("Trigger", mock.Anything, "a@example.com", "doc-1").Return(sampleReport(), nil).Once()

	out, _, err := runCmd(t, svc, "a@example.com", "--document", "doc-1", "--json")

	require.NoError(t, err)
	var got delivery.Report
	require.NoError(t, json.Unmarshal([]byte(out), &got))
	assert.Len(t, got.Results, 2)
	svc.AssertExpectations(t)
}

func TestRootCmd_Strict(t *testing.T) {
	svc := new(serviceMocks.MockDeliveryService)
	svc.On("Trigger", mock.Anything, "ALL", "").Return(sampleReport(), nil).Once()

	_, _, err := runCmd(t, svc, "ALL", "--strict")

	assert.EqualError(t, err, "some subscriptions were not delivered")
}

func TestRootCmd_PassFailure(t *testing.T) {
	svc := new(serviceMocks.MockDeliveryService)
	svc.On("Trigger", mock.Anything, "ALL", "").Return(nil, repository.ErrScopeUnavailable).Once()

	_, closed, err := runCmd(t, svc, "ALL")

	assert.ErrorIs(t, err, repository.ErrScopeUnavailable)
	assert.True(t, closed)
}

func TestRootCmd_Args(t *testing.T) {
	svc := new(serviceMocks.MockDeliveryService)

	_, _, err := runCmd(t, svc)
	assert.Error(t, err)

	connectErr := errors.New("db down")
	cmd := newRootCmd(func(context.Context) (trigger, func() error, error) {
		return nil, nil, connectErr
	})
	cmd.SetOut(new(bytes.Buffer))
	cmd.SetErr(new(bytes.Buffer))
	cmd.SetArgs([]string{"ALL"})
	assert.ErrorIs(t, cmd.ExecuteContext(context.Background()), connectErr)
	svc.AssertNotCalled(t, "Trigger", mock.Anything, mock.Anything, mock.Anything)
}

func TestRootCmd_MalformedDocumentID(t *testing.T) {
	runner := new(runnerMocks.MockRunner)
	cmd := newRootCmd(func(context.Context) (trigger, func() error, error) {
		return service.NewDeliveryService(runner), func() error { return nil }, nil
	})
	cmd.SetOut(new(bytes.Buffer))
	cmd.SetErr(new(bytes.Buffer))
	cmd.SetArgs([]string{"a@example.com", "--document", "not-a-uuid"})

	err := cmd.ExecuteContext(context.Background())

	assert.ErrorIs(t, err, service.ErrInvalidID)
	assert.Contains(t, err.Error(), "invalid arguments")
	assert.NotErrorIs(t, err, repository.ErrScopeUnavailable)
	runner.AssertNotCalled(t, "Run", mock.Anything, mock.Anything, mock.Anything)
}
