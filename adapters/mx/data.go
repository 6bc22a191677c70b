package mx

import (
	"context"
	"fmt"
	"time"

	"github.com/goliatone/go-connect/core"
)

// DataClient is the vendor's read API behind the normalized data pulls.
type DataClient interface {
	ListAccounts(ctx context.Context, memberGUID string, userGUID string) ([]map[string]any, error)
	ListAccountOwners(ctx context.Context, memberGUID string, userGUID string) ([]map[string]any, error)
	ListTransactions(ctx context.Context, memberGUID string, userGUID string, accountGUID string, from *time.Time, to *time.Time) ([]map[string]any, error)
}

type DataSource struct {
	client DataClient
}

func NewDataSource(client DataClient) (*DataSource, error) {
	if client == nil {
		return nil, fmt.Errorf("mx: data client is required")
	}
	return &DataSource{client: client}, nil
}

func (d *DataSource) GetAccounts(ctx context.Context, req core.DataRequest) (map[string]any, error) {
	accounts, err := d.client.ListAccounts(ctx, req.ConnectionID, req.UserID)
	if err != nil {
		return nil, err
	}
	return map[string]any{"accounts": accounts}, nil
}

func (d *DataSource) GetIdentity(ctx context.Context, req core.DataRequest) (map[string]any, error) {
	owners, err := d.client.ListAccountOwners(ctx, req.ConnectionID, req.UserID)
	if err != nil {
		return nil, err
	}
	return map[string]any{"customers": owners}, nil
}

func (d *DataSource) GetTransactions(ctx context.Context, req core.DataRequest) (map[string]any, error) {
	transactions, err := d.client.ListTransactions(ctx, req.ConnectionID, req.UserID, req.AccountID, req.StartTime, req.EndTime)
	if err != nil {
		return nil, err
	}
	return map[string]any{"transactions": transactions}, nil
}
