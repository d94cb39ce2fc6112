// Package mongo provides a MongoDB-backed user session store. Build the
// low-level client via features/usersession/mongo/clients/mongo and pass it to
// NewStore, or use Connect to dial MongoDB from a Config loaded from the
// environment.
//
// Transactional cascade deletes require a replica set or a sharded cluster.
// Against a standalone server leave Config.TransactionalCascade unset.
package mongo
