// Package payments talks to the payment provider. Two backends exist: the
// live Stripe one and a simulated one used when no provider key is set.
package payments

import (
	"context"
	"fmt"
	"sort"
	"strconv"
	"strings"
)

// Intent statuses we act on.
const (
	StatusSucceeded             = "succeeded"
	StatusRequiresPaymentMethod = "requires_payment_method"
)

// Metadata keys bound into every intent. Carts whose joined ids do not fit
// one metadata value are spread over MetaProductIDs+"_0", "_1" and so on.
const (
	MetaUserID     = "userId"
	MetaProductIDs = "productIds"
)

// Stripe metadata limits: 500 characters per value and 50 keys per object.
const (
	MetadataValueLimit = 500
	maxProductIDShards = 49
)

// MaxCartItems is the largest cart whose product ids always fit the metadata
// shards. Product ids are 36-character UUIDs.
const MaxCartItems = maxProductIDShards * ((MetadataValueLimit + 1) / 37)

// Intent is the provider-side record of an authorized payment. Amount is in
// minor currency units.
type Intent struct {
	ID           string
	ClientSecret string
	Amount       int64
	Currency     string
	Status       string
	Metadata     map[string]string
}

type IntentRequest struct {
	Amount     int64
	Currency   string
	UserID     string
	ProductIDs []string
}

// Metadata renders the binding metadata: the buyer and the sorted,
// comma-joined product ids, sharded when they exceed one value.
func (r IntentRequest) Metadata() map[string]string {
	md := map[string]string{MetaUserID: r.UserID}

	joined := JoinProductIDs(r.ProductIDs)
	if len(joined) <= MetadataValueLimit {
		md[MetaProductIDs] = joined
		return md
	}

	for i, shard := range shardIDs(r.ProductIDs) {
		md[shardKey(i)] = shard
	}
	return md
}

// Validate rejects requests whose metadata cannot be stored by the provider.
func (r IntentRequest) Validate() error {
	if n := len(shardIDs(r.ProductIDs)); n > maxProductIDShards {
		return fmt.Errorf("cart of %d items exceeds the limit of %d", len(r.ProductIDs), MaxCartItems)
	}
	return nil
}

// ProductIDsFromMetadata reassembles the product ids written by Metadata.
func ProductIDsFromMetadata(md map[string]string) []string {
	if v, ok := md[MetaProductIDs]; ok {
		return SplitProductIDs(v)
	}
	var ids []string
	for i := 0; ; i++ {
		v, ok := md[shardKey(i)]
		if !ok {
			return ids
		}
		ids = append(ids, SplitProductIDs(v)...)
	}
}

func shardKey(i int) string {
	return MetaProductIDs + "_" + strconv.Itoa(i)
}

// shardIDs packs the sorted ids into comma-joined values of at most
// MetadataValueLimit characters.
func shardIDs(ids []string) []string {
	sorted := append([]string(nil), ids...)
	sort.Strings(sorted)

	var shards []string
	var cur strings.Builder
	for _, id := range sorted {
		if cur.Len() > 0 && cur.Len()+1+len(id) > MetadataValueLimit {
			shards = append(shards, cur.String())
			cur.Reset()
		}
		if cur.Len() > 0 {
			cur.WriteByte(',')
		}
		cur.WriteString(id)
	}
	if cur.Len() > 0 {
		shards = append(shards, cur.String())
	}
	return shards
}

// JoinProductIDs sorts a copy of ids and joins them with commas.
func JoinProductIDs(ids []string) string {
	sorted := append([]string(nil), ids...)
	sort.Strings(sorted)
	return strings.Join(sorted, ",")
}

// SplitProductIDs is the inverse of JoinProductIDs.
func SplitProductIDs(s string) []string {
	if s == "" {
		return nil
	}
	return strings.Split(s, ",")
}

type Provider interface {
	CreateIntent(ctx context.Context, req IntentRequest) (*Intent, error)
	RetrieveIntent(ctx context.Context, id string) (*Intent, error)
	// Simulated reports whether intents are fabricated locally.
	Simulated() bool
}
