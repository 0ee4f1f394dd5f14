package crm

import (
	"context"

	"github.com/stretchr/testify/mock"

	"github.com/sells-group/estate-crm/internal/audit"
	"github.com/sells-group/estate-crm/internal/model"
)

type mockStore struct {
	mock.Mock
}

func (m *mockStore) GetClient(ctx context.Context, id string) (*model.Client, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Client), args.Error(1)
}

func (m *mockStore) UpdateClient(ctx context.Context, id string, patch model.ClientPatch) (*model.Client, error) {
	args := m.Called(ctx, id, patch)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Client), args.Error(1)
}

type mockAuditor struct {
	mock.Mock
}

func (m *mockAuditor) Log(ctx context.Context, e audit.Entry) error {
	args := m.Called(ctx, e)
	return args.Error(0)
}

func sp(s string) *string { return &s }

func patched(prev model.Client, p model.ClientPatch) *model.Client {
	c := prev.Clone()
	p.Apply(&c)
	return &c
}
