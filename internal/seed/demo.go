// Package seed provides demo records for an empty store.
package seed

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/matthewbaird/streamconsole/internal/store"
	"github.com/matthewbaird/streamconsole/internal/types"
)

type record struct {
	kind   string
	values map[string]any
}

// demo is a pipeline from a Pulsar group into Hive, with a MySQL node and a
// consumer.
var demo = []record{
	{"group", map[string]any{"inlongGroupId": "demo_orders", "name": "Orders", "mqType": "PULSAR"}},
	{"group", map[string]any{"inlongGroupId": "demo_clicks", "name": "Clicks", "mqType": "KAFKA"}},
	{"stream", map[string]any{
		"inlongGroupId": "demo_orders", "inlongStreamId": "orders_raw", "name": "Raw orders",
		"dataEncoding": "UTF-8", "dataSeparator": ",",
		"fields": `[{"fieldName":"order_id","fieldType":"long"},{"fieldName":"amount","fieldType":"double"}]`,
	}},
	{"stream", map[string]any{
		"inlongGroupId": "demo_clicks", "inlongStreamId": "clicks_raw", "name": "Raw clicks",
		"dataEncoding": "UTF-8", "dataSeparator": "|", "fields": `[]`,
	}},
	{"node", map[string]any{
		"name": "warehouse", "type": "MYSQL", "description": "Reporting database",
		"url": "jdbc:mysql://warehouse:3306", "username": "inlong", "password": "inlong",
	}},
	{"sink", map[string]any{
		"inlongGroupId": "demo_orders", "inlongStreamId": "orders_raw", "sinkName": "orders_hive",
		"sinkType": "HIVE", "dataNodeName": "warehouse", "enableCreateResource": int64(1),
		"dbName": "ods", "tableName": "orders", "status": int64(130),
	}},
	{"sink", map[string]any{
		"inlongGroupId": "demo_clicks", "inlongStreamId": "clicks_raw", "sinkName": "clicks_kafka",
		"sinkType": "KAFKA", "dataNodeName": "warehouse", "enableCreateResource": int64(1),
		"topic": "clicks", "partitions": int64(3), "status": int64(110),
	}},
	{"consume", map[string]any{
		"consumerGroup": "reporting", "inlongGroupId": "demo_orders",
		"filterEnabled": int64(0), "inlongStreamId": "orders_raw",
	}},
}

// Demo creates the demo records of every kind that holds no records yet and
// returns how many it created. Kinds already populated are left alone.
func Demo(ctx context.Context, st store.Store, logger *slog.Logger) (int, error) {
	if logger == nil {
		logger = slog.Default()
	}
	empty := make(map[string]bool)
	created := 0
	for _, r := range demo {
		isEmpty, checked := empty[r.kind]
		if !checked {
			res, err := st.List(ctx, r.kind, types.NewListQuery(1, nil))
			if err != nil {
				return created, fmt.Errorf("seed: check %s: %w", r.kind, err)
			}
			isEmpty = res.Total == 0
			empty[r.kind] = isEmpty
			if !isEmpty {
				logger.Info("seed: kind already populated, skipping", slog.String("kind", r.kind), slog.Int("count", res.Total))
			}
		}
		if !isEmpty {
			continue
		}
		if _, err := st.Create(ctx, r.kind, r.values); err != nil {
			return created, fmt.Errorf("seed: create %s: %w", r.kind, err)
		}
		created++
	}
	return created, nil
}
