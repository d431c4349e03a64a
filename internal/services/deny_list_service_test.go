package services

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/BradenHooton/warden/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestDenyListService(repo *MockDenyListRepository, enabled bool) (*DenyListService, *MockDenyFile) {
	var audit strings.Builder
	file := &MockDenyFile{}
	return NewDenyListService(repo, file, auditRecorder(&audit), testLogger(), enabled), file
}

func TestDenyListService_Disabled(t *testing.T) {
	applied := false
	repo := &MockDenyListRepository{
		ApplyFunc: func(ctx context.Context, req models.DenialRequest) error {
			applied = true
			return nil
		},
	}
	svc, file := newTestDenyListService(repo, false)

	err := svc.Process(context.Background(), adminPrincipal(), models.DenialRequest{
		Add: &models.DenyListEntry{IPAddress: "10.0.0.9"},
	}, "10.0.0.1")

	assert.ErrorIs(t, err, models.ErrForbidden)
	assert.False(t, svc.Enabled())
	assert.False(t, applied)
	assert.Empty(t, file.Synced)
}

func TestDenyListService_AddNormalizesAndSyncs(t *testing.T) {
	var got models.DenialRequest
	stored := []models.DenyListEntry{{ID: 1, IPAddress: "192.168.0.0/16"}}
	repo := &MockDenyListRepository{
		ApplyFunc: func(ctx context.Context, req models.DenialRequest) error {
			got = req
			return nil
		},
		ListFunc: func(ctx context.Context) ([]models.DenyListEntry, error) {
			return stored, nil
		},
	}
	svc, file := newTestDenyListService(repo, true)

	err := svc.Process(context.Background(), adminPrincipal(), models.DenialRequest{
		Add: &models.DenyListEntry{IPAddress: " 192.168.4.20/16 ", ReasonCode: 3},
	}, "10.0.0.1")

	require.NoError(t, err)
	require.NotNil(t, got.Add)
	assert.Equal(t, "192.168.0.0/16", got.Add.IPAddress)
	assert.Equal(t, 3, got.Add.ReasonCode)
	require.Len(t, file.Synced, 1)
	assert.Equal(t, stored, file.Synced[0])
}

func TestDenyListService_Remove(t *testing.T) {
	var got models.DenialRequest
	repo := &MockDenyListRepository{
		ApplyFunc: func(ctx context.Context, req models.DenialRequest) error {
			got = req
			return nil
		},
	}
	svc, file := newTestDenyListService(repo, true)

	err := svc.Process(context.Background(), adminPrincipal(), models.DenialRequest{
		RemoveIPs: []string{"10.0.0.9", " ", "10.0.0.10"},
	}, "10.0.0.1")

	require.NoError(t, err)
	assert.Nil(t, got.Add)
	assert.Equal(t, []string{"10.0.0.9", "10.0.0.10"}, got.RemoveIPs)
	assert.Len(t, file.Synced, 1)
}

func TestDenyListService_Validation(t *testing.T) {
	tests := []struct {
		name  string
		entry models.DenyListEntry
		field string
	}{
		{"not an address", models.DenyListEntry{IPAddress: "example.com"}, "ip_address"},
		{"bad prefix", models.DenyListEntry{IPAddress: "10.0.0.0/40"}, "ip_address"},
		{"unknown reason", models.DenyListEntry{IPAddress: "10.0.0.9", ReasonCode: 42}, "reason_code"},
		{"own address", models.DenyListEntry{IPAddress: "10.0.0.1"}, "ip_address"},
		{"block containing own address", models.DenyListEntry{IPAddress: "10.0.0.0/24"}, "ip_address"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			applied := false
			repo := &MockDenyListRepository{
				ApplyFunc: func(ctx context.Context, req models.DenialRequest) error {
					applied = true
					return nil
				},
			}
			svc, _ := newTestDenyListService(repo, true)
			entry := tt.entry

			err := svc.Process(context.Background(), adminPrincipal(), models.DenialRequest{Add: &entry}, "10.0.0.1")

			var verr *models.ValidationError
			require.ErrorAs(t, err, &verr)
			assert.Contains(t, verr.Fields, tt.field)
			assert.False(t, applied)
		})
	}
}

func TestDenyListService_Duplicate(t *testing.T) {
	repo := &MockDenyListRepository{
		ApplyFunc: func(ctx context.Context, req models.DenialRequest) error {
			return models.ErrConflict
		},
	}
	svc, file := newTestDenyListService(repo, true)

	err := svc.Process(context.Background(), adminPrincipal(), models.DenialRequest{
		Add: &models.DenyListEntry{IPAddress: "10.9.9.9"},
	}, "10.0.0.1")

	var verr *models.ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Empty(t, file.Synced)
}

func TestDenyListService_FileFailureDoesNotFailRequest(t *testing.T) {
	svc, file := newTestDenyListService(&MockDenyListRepository{}, true)
	file.SyncErr = errors.New("read-only file system")

	err := svc.Process(context.Background(), adminPrincipal(), models.DenialRequest{
		Add: &models.DenyListEntry{IPAddress: "10.9.9.9"},
	}, "10.0.0.1")

	assert.NoError(t, err)
}

func TestNormalizeDenyAddress(t *testing.T) {
	tests := map[string]string{
		"10.0.0.1":        "10.0.0.1",
		"::ffff:10.0.0.1": "10.0.0.1",
		"10.1.2.3/8":      "10.0.0.0/8",
		"2001:db8::1/32":  "2001:db8::/32",
		" 2001:DB8::FF ":  "2001:db8::ff",
	}
	for in, want := range tests {
		got, err := NormalizeDenyAddress(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got, in)
	}

	_, err := NormalizeDenyAddress("")
	assert.Error(t, err)
}
