package harness

import "github.com/roach88/docsql/internal/schema"

func testSchema() schema.Definition {
	return schema.Definition{
		Name: "notes",
		Stores: []schema.StoreDef{
			{Name: "note", KeyPath: "id", Indexes: []schema.IndexDef{{Name: "tag"}}},
		},
	}
}

func boolPtr(b bool) *bool { return &b }

func intPtr(n int) *int { return &n }
