package schema

import (
	"time"

	"github.com/hamba/avro/v2"
)

const ClientEventSchemaTextV1 = `{
	"type": "record",
	"namespace": "explorer",
	"name": "client_event",
	"fields": [
		{"name": "session_id", "type": "string"},
		{"name": "kind", "type": "string"},
		{"name": "product_id", "type": "string"},
		{"name": "quantity", "type": "long"},
		{"name": "occurred_at", "type": {"type": "long", "logicalType": "timestamp-millis"}}
	]
}`

type ClientEventV1 struct {
	SessionID  string    `avro:"session_id"`
	Kind       string    `avro:"kind"`
	ProductID  string    `avro:"product_id"`
	Quantity   int64     `avro:"quantity"`
	OccurredAt time.Time `avro:"occurred_at"`
}

func ClientEventV1Avro() avro.Schema {
	return avro.MustParse(ClientEventSchemaTextV1)
}
