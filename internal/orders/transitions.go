package orders

var nextStatuses = map[Status]Status{
	StatusPending:   StatusPreparing,
	StatusPreparing: StatusReady,
	StatusReady:     StatusServed,
	StatusServed:    StatusPaid,
}

// CanTransition reports whether an order may move from one status to another.
// Progress is forward only; cancelling is allowed while the order is open.
func CanTransition(from, to Status) bool {
	if to == StatusCancelled {
		return from.Open()
	}
	next, ok := nextStatuses[from]
	return ok && next == to
}

// releasesTable reports whether entering s frees the order's table.
func releasesTable(s Status) bool {
	return s == StatusReady || s == StatusCancelled
}
