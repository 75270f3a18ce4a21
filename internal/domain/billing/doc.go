// Package billing provides the domain model for periodic rental billing.
//
// This package implements the billing bounded context, which is responsible for:
//   - Representing one billing period's financial record per tenancy (Bill)
//   - Calendar-month period arithmetic with short-month clamping
//   - The billing math that derives totals, balances and payment status
//
// Key Aggregates:
//   - Bill: one period's record; opening values carried from the
//     predecessor's closing values, derived fields recomputed on every save
//
// Value Objects:
//   - Period: a closed start/end date interval
//   - BillStatus: unpaid / partial / paid
//
// Bills of one tenancy form a strictly ordered, non-overlapping ledger:
// each bill's previous meter reading and previous due amount equal the
// preceding bill's closing values (or the tenancy's starting values for the
// first bill). The application layer keeps this invariant by propagating
// every edit forward through the sequence.
package billing
