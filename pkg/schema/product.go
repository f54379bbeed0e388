package schema

import "github.com/hamba/avro/v2"

const ProductSchemaTextV1 = `{
	"type": "record",
	"namespace": "explorer",
	"name": "product",
	"fields": [
		{"name": "id", "type": "string"},
		{"name": "name", "type": "string"},
		{"name": "description", "type": "string"},
		{"name": "category", "type": "string"},
		{"name": "price", "type": "double"},
		{"name": "rating", "type": "double"},
		{"name": "stock", "type": "long"},
		{"name": "image_url", "type": "string"}
	]
}`

type ProductV1 struct {
	ID          string  `avro:"id"`
	Name        string  `avro:"name"`
	Description string  `avro:"description"`
	Category    string  `avro:"category"`
	Price       float64 `avro:"price"`
	Rating      float64 `avro:"rating"`
	Stock       int64   `avro:"stock"`
	ImageURL    string  `avro:"image_url"`
}

func ProductV1Avro() avro.Schema {
	return avro.MustParse(ProductSchemaTextV1)
}
