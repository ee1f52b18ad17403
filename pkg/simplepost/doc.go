// Package simplepost implements a message-driven post service: CRUD
// operations on user-owned posts, transported over a broker rather than
// HTTP. The package holds the domain model, the error taxonomy, the
// ownership guard, the repository specialization and the command service;
// persistence backends live under store/, the broker binding under
// transport/ and the message dispatch layer under dispatch/.
package simplepost
