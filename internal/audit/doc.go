// Package audit records login and logout events. A Dispatcher queues events for one
// sink; under pressure it sheds failure events but keeps session lifecycle records.
package audit
