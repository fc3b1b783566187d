package tabular

import (
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/width"
)

// Synonyms lists the accepted spellings of one logical column.
type Synonyms []string

// Recognized header spellings. Matching is done on HeaderKey, so case and
// full-width punctuation do not matter.
var (
	SalesSKU      = Synonyms{"sku", "sku编码", "style", "款式", "商品编码", "sku code", "sku_id"}
	SalesQuantity = Synonyms{"数量", "qty", "quantity", "件数", "销售数量", "销量"}
	SalesDate     = Synonyms{"日期", "date", "order_date", "出库日期"}

	ExchangeOriginal    = Synonyms{"原款sku", "原款式", "原款", "original_sku", "origsku", "orig_sku", "申样sku"}
	ExchangeReplacement = Synonyms{"换货sku", "换货款式", "换货", "new_sku", "newsku"}
	ExchangeQuantity    = Synonyms{"数量", "qty", "quantity"}
	ExchangeDate        = Synonyms{"日期", "date"}
)

// HeaderKey normalizes a column name for comparison.
func HeaderKey(name string) string {
	folded := width.Fold.String(strings.TrimSpace(name))
	return cases.Fold().String(folded)
}

// Has reports whether name is one of the synonyms.
func (s Synonyms) Has(name string) bool {
	key := HeaderKey(name)
	for _, candidate := range s {
		if HeaderKey(candidate) == key {
			return true
		}
	}
	return false
}

// FindColumn returns the index of the first header matching any synonym,
// or -1.
func (t *Table) FindColumn(syn Synonyms) int {
	for i, h := range t.Header {
		if syn.Has(h) {
			return i
		}
	}
	return -1
}

// ColumnIndex returns the index of the header equal to name under
// HeaderKey, or -1.
func (t *Table) ColumnIndex(name string) int {
	key := HeaderKey(name)
	for i, h := range t.Header {
		if HeaderKey(h) == key {
			return i
		}
	}
	return -1
}
