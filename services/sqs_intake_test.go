package services

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestImportRequestHandler_Enqueues(t *testing.T) {
	h := newHarness()
	q := newMemQueue()
	handler := NewImportRequestHandler(q, NewServiceFactory(h.deps), zap.NewNop())

	body := `{"store_id":"` + h.storeID.String() + `","operation":"Products","limit":10,"skip_existing":true}`
	require.NoError(t, handler.Handle(context.Background(), body))

	require.Len(t, q.ids, 1)
	id := <-q.ids
	job, err := q.Get(context.Background(), id)
	require.NoError(t, err)
	assert.Equal(t, h.storeID, job.StoreID)
	assert.Equal(t, OperationProducts, job.Operation)
	assert.Equal(t, JobOptions{Limit: 10, SkipExisting: true}, job.Options)
	assert.Equal(t, JobStatusQueued, job.Status)
}

func TestImportRequestHandler_UnwrapsSNS(t *testing.T) {
	h := newHarness()
	q := newMemQueue()
	handler := NewImportRequestHandler(q, NewServiceFactory(h.deps), zap.NewNop())

	inner := `{"store_id":"` + h.storeID.String() + `"}`
	env, _ := json.Marshal(map[string]string{"Type": "Notification", "Message": inner})
	require.NoError(t, handler.Handle(context.Background(), string(env)))

	job, err := q.Get(context.Background(), <-q.ids)
	require.NoError(t, err)
	assert.Equal(t, OperationFull, job.Operation)
}

func TestImportRequestHandler_RunsInline(t *testing.T) {
	h := newHarness()
	h.shopify.custom, h.shopify.smart = sampleCollections()
	handler := NewImportRequestHandler(nil, NewServiceFactory(h.deps), zap.NewNop())

	body := `{"store_id":"` + h.storeID.String() + `","operation":"collections"}`
	require.NoError(t, handler.Handle(context.Background(), body))
	assert.Len(t, h.catalog.categories, 3)
}

func TestImportRequestHandler_DropsMalformed(t *testing.T) {
	h := newHarness()
	q := newMemQueue()
	handler := NewImportRequestHandler(q, NewServiceFactory(h.deps), zap.NewNop())

	for _, body := range []string{
		`not json`,
		`{"store_id":"nope"}`,
		`{"store_id":"` + h.storeID.String() + `","operation":"orders"}`,
		`{"store_id":"` + h.storeID.String() + `","limit":-1}`,
	} {
		assert.NoError(t, handler.Handle(context.Background(), body), body)
	}
	assert.Empty(t, q.ids)
}
