// Package tools defines tool contracts and the breakfast-shop tools.
//
// Includes:
//   - Tool: name-addressed capability with a Declaration and Invoke.
//   - Registry: startup-populated, concurrently readable name lookup.
//   - GenerateSchema[T](): derive a parameter Schema from a Go struct.
//   - ValidateArguments: check raw call arguments against a Declaration.
//   - Shop tools: show_menu, search_products, add_cart, show_cart, send_order.
package tools
