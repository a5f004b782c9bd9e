package flinksql

import (
	"maps"
	"slices"
	"sort"
)

// Well-known WITH option keys.
const (
	OptionConnector          = "connector"
	OptionChangelogMode      = "changelog.mode"
	OptionCleanupPolicy      = "kafka.cleanup-policy"
	OptionRetentionTime      = "kafka.retention.time"
	OptionKeySchemaContext   = "key.avro-registry.schema-context"
	OptionValueSchemaContext = "value.avro-registry.schema-context"
	OptionKeyFormat          = "key.format"
	OptionValueFormat        = "value.format"
)

// Metadata is the structural metadata of a table definition. None of it
// contributes to lineage.
type Metadata struct {
	Columns        []Column
	PrimaryKey     []string
	Distribution   *Distribution
	PartitionKeys  []string
	Watermark      *Watermark
	Comment        string
	Options        map[string]string // WITH ('k' = 'v')
	Like           string            // CREATE TABLE t LIKE base
	SessionOptions map[string]string // SET 'k' = 'v'
	// Recognized lists the names of the option recognizers that matched,
	// in match order.
	Recognized []string
}

// Column is one physical, computed or metadata column.
type Column struct {
	Name       string
	Type       string
	Comment    string
	PrimaryKey bool
}

// Distribution describes DISTRIBUTED BY / DISTRIBUTED INTO clauses.
type Distribution struct {
	Algorithm string // HASH, RANGE or empty
	Keys      []string
	Buckets   int
}

// Watermark describes WATERMARK FOR col AS expr.
type Watermark struct {
	Column     string
	Expression string
}

// Option returns a WITH option value.
func (m *Metadata) Option(key string) (string, bool) {
	if m == nil || m.Options == nil {
		return "", false
	}
	v, ok := m.Options[key]
	return v, ok
}

// ChangelogMode returns the changelog.mode option, or "" when unset.
func (m *Metadata) ChangelogMode() string {
	v, _ := m.Option(OptionChangelogMode)
	return v
}

// CleanupPolicy returns the kafka.cleanup-policy option, or "" when unset.
func (m *Metadata) CleanupPolicy() string {
	v, _ := m.Option(OptionCleanupPolicy)
	return v
}

// HasSchemaContext reports whether both key and value schema contexts are set.
func (m *Metadata) HasSchemaContext() bool {
	_, key := m.Option(OptionKeySchemaContext)
	_, value := m.Option(OptionValueSchemaContext)
	return key && value
}

// OptionKeys returns the WITH option keys sorted.
func (m *Metadata) OptionKeys() []string {
	if m == nil {
		return nil
	}
	keys := make([]string, 0, len(m.Options))
	for k := range m.Options {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Clone returns a deep copy of the metadata.
func (m *Metadata) Clone() *Metadata {
	if m == nil {
		return nil
	}
	c := *m
	c.Columns = slices.Clone(m.Columns)
	c.PrimaryKey = slices.Clone(m.PrimaryKey)
	c.PartitionKeys = slices.Clone(m.PartitionKeys)
	c.Options = maps.Clone(m.Options)
	c.SessionOptions = maps.Clone(m.SessionOptions)
	c.Recognized = slices.Clone(m.Recognized)
	if m.Distribution != nil {
		d := *m.Distribution
		d.Keys = slices.Clone(m.Distribution.Keys)
		c.Distribution = &d
	}
	if m.Watermark != nil {
		w := *m.Watermark
		c.Watermark = &w
	}
	return &c
}

func (m *Metadata) setOption(key, value string) {
	if m.Options == nil {
		m.Options = make(map[string]string)
	}
	m.Options[key] = value
}

func (m *Metadata) setSessionOption(key, value string) {
	if m.SessionOptions == nil {
		m.SessionOptions = make(map[string]string)
	}
	m.SessionOptions[key] = value
}

func (m *Metadata) merge(other *Metadata) {
	if other == nil {
		return
	}
	for k, v := range other.SessionOptions {
		m.setSessionOption(k, v)
	}
	m.Recognized = append(m.Recognized, other.Recognized...)
}
