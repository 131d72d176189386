package model

// Attr identifies one evaluable attribute of an entity. Lower bound,
// upper bound, level, price and the rest are all selected the same way
// regardless of entity kind, so the resolver can treat them uniformly.
type Attr byte

const (
	AttrDefault Attr = 0
	AttrLB      Attr = 'L' // lower bound
	AttrUB      Attr = 'U' // upper bound
	AttrLevel   Attr = 'l' // solved level (process/product/link flow)
	AttrPrice   Attr = 'p' // unit price / cost price
	AttrCost    Attr = 'c' // total cost
	AttrStock   Attr = 's' // stored quantity (product)
	AttrOn      Attr = 'o' // on/off state (process)
)

// attrCodes maps the modeler-facing attribute suffix text (as it
// appears after "|" in a variable reference) to the internal Attr
// code. An empty string means AttrDefault, the entity's natural value.
var attrCodes = map[string]Attr{
	"":     AttrDefault,
	"LB":   AttrLB,
	"UB":   AttrUB,
	"L":    AttrLevel,
	"CP":   AttrPrice,
	"CI":   AttrCost,
	"SOC":  AttrStock,
	"ON":   AttrOn,
}

func parseAttr(s string) (Attr, bool) {
	a, ok := attrCodes[s]
	return a, ok
}

// ParseAttr is the exported form of parseAttr, for callers outside the
// package (the xmlio parser) that need to turn an attribute suffix
// string into an Attr code.
func ParseAttr(s string) (Attr, bool) {
	return parseAttr(s)
}
