package tttevo

import (
	"context"
	"errors"
	"fmt"

	"tttevo/internal/model"
	"tttevo/internal/params"
	"tttevo/internal/storage"
)

const defaultDBPath = "tttevo.db"

var ErrEngineNotFound = errors.New("engine not found")

type ClientOptions struct {
	StoreKind string
	// Path is the sqlite database file or the file store directory.
	Path string
}

// Client persists engines through one of the storage backends.
type Client struct {
	store storage.Store
}

func New(opts ClientOptions) (*Client, error) {
	kind := opts.StoreKind
	if kind == "" {
		kind = storage.DefaultStoreKind()
	}
	path := opts.Path
	if path == "" {
		switch kind {
		case "sqlite":
			path = defaultDBPath
		case "file":
			path = "engines"
		}
	}
	store, err := storage.NewStore(kind, path)
	if err != nil {
		return nil, err
	}
	if err := store.Init(context.Background()); err != nil {
		_ = storage.CloseIfSupported(store)
		return nil, err
	}
	return &Client{store: store}, nil
}

// NewWithStore wraps an already initialized store.
func NewWithStore(store storage.Store) *Client {
	return &Client{store: store}
}

func (c *Client) Close() error {
	return storage.CloseIfSupported(c.store)
}

func (c *Client) Save(ctx context.Context, engine *Engine) (model.ParameterRecord, error) {
	record := engine.Record()
	if err := c.store.SaveParameters(ctx, record); err != nil {
		return model.ParameterRecord{}, fmt.Errorf("save engine %s: %w", engine.ID(), err)
	}
	return record, nil
}

// SaveRecord stores an externally produced record after checking that its
// arrays load into a parameter set.
func (c *Client) SaveRecord(ctx context.Context, record model.ParameterRecord) error {
	if err := params.NewSet().Set(record); err != nil {
		return fmt.Errorf("import %s: %w", record.ID, err)
	}
	if record.EngineVersion == "" {
		record.EngineVersion = Version
	}
	return c.store.SaveParameters(ctx, storage.Stamp(record))
}

func (c *Client) Record(ctx context.Context, id string) (model.ParameterRecord, error) {
	record, ok, err := c.store.GetParameters(ctx, id)
	if err != nil {
		return model.ParameterRecord{}, err
	}
	if !ok {
		return model.ParameterRecord{}, fmt.Errorf("%w: %s", ErrEngineNotFound, id)
	}
	return record, nil
}

// Load rebuilds a stored engine. opts supplies geometry, symbols and the
// random source; its ID is ignored.
func (c *Client) Load(ctx context.Context, id string, opts Options) (*Engine, error) {
	record, err := c.Record(ctx, id)
	if err != nil {
		return nil, err
	}
	return FromRecord(record, opts)
}

func (c *Client) List(ctx context.Context) ([]string, error) {
	return c.store.ListParameters(ctx)
}

func (c *Client) Delete(ctx context.Context, id string) error {
	return c.store.DeleteParameters(ctx, id)
}

type LineageItem struct {
	ID            string
	ParentID      string
	EngineVersion string
	CreatedAtUTC  string
}

// Lineage walks parent links starting at id. A limit <= 0 walks to the root.
// The walk stops quietly at a parent that is no longer stored.
func (c *Client) Lineage(ctx context.Context, id string, limit int) ([]LineageItem, error) {
	var items []LineageItem
	seen := map[string]bool{}
	current := id
	for current != "" {
		if limit > 0 && len(items) >= limit {
			break
		}
		if seen[current] {
			return nil, fmt.Errorf("lineage cycle at %s", current)
		}
		seen[current] = true

		record, ok, err := c.store.GetParameters(ctx, current)
		if err != nil {
			return nil, err
		}
		if !ok {
			if len(items) == 0 {
				return nil, fmt.Errorf("%w: %s", ErrEngineNotFound, current)
			}
			break
		}
		items = append(items, LineageItem{
			ID:            record.ID,
			ParentID:      record.ParentID,
			EngineVersion: record.EngineVersion,
			CreatedAtUTC:  record.CreatedAtUTC,
		})
		current = record.ParentID
	}
	return items, nil
}
