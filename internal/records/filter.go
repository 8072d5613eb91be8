package records

import "time"

// Filters is the closed set of narrowing options a caller may apply. A nil
// field means "no restriction". Filters only select records; they never change
// the arithmetic applied to the records they select.
type Filters struct {
	// FPOID restricts lines (and the FPO set) to one organisation.
	FPOID *int64 `json:"fpo_id,omitempty"`
	// ProductID restricts procurement and sales lines to one product.
	// The farmer ledger ignores it: payments are not tied to products.
	ProductID *int64 `json:"product_id,omitempty"`
	// FarmerID restricts the ledger to one farmer. The period summary
	// ignores it: sales lines carry no farmer.
	FarmerID *int64 `json:"farmer_id,omitempty"`
	// DateFrom and DateTo narrow the window; they never widen it.
	DateFrom *time.Time `json:"date_from,omitempty"`
	DateTo   *time.Time `json:"date_to,omitempty"`
}

// ID returns a pointer to v for use in Filters literals.
func ID(v int64) *int64 {
	return &v
}

// Narrow intersects w with the DateFrom/DateTo bounds.
func (f Filters) Narrow(w TimeWindow) TimeWindow {
	bound := TimeWindow{Start: w.Start, End: w.End}
	if f.DateFrom != nil {
		bound.Start = *f.DateFrom
	}
	if f.DateTo != nil {
		bound.End = *f.DateTo
	}
	return w.Intersect(bound)
}

// MatchFPO reports whether id passes the FPO filter.
func (f Filters) MatchFPO(id int64) bool {
	return f.FPOID == nil || *f.FPOID == id
}

// MatchProduct reports whether id passes the product filter.
func (f Filters) MatchProduct(id int64) bool {
	return f.ProductID == nil || *f.ProductID == id
}

// MatchFarmer reports whether id passes the farmer filter.
func (f Filters) MatchFarmer(id int64) bool {
	return f.FarmerID == nil || *f.FarmerID == id
}
