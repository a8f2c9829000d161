// Package models defines the domain models shared by the MeniuMate API
// server and its client.
//
// # Catalog
//
//   - Menu: a named restaurant menu
//   - Dish: a priced dish belonging to a menu
//   - Comment: a rated user comment on a dish
//
// Menus and dishes are mutated by Admin users only. Comments are mutated by
// their author or by an Admin.
//
// # Group ledger
//
//   - Group: an expense-splitting group owned by a user
//   - Member: a named participant of one group
//   - Transaction: a payment by one member split among the members
//   - Settlement: a payment clearing the net debt between two members
//   - Debt: a directed pairwise balance, always read as "From owes To"
//
// # Design Principles
//
// 1. IDs are UUID strings generated by the store.
// 2. Relationships use ID strings, never pointers.
// 3. Validation lives next to the model (see validate.go) so the client can
// reject bad input before submission and the server can repeat the check.
package models
