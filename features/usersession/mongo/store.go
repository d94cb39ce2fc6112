package mongo

import (
	"errors"

	clientsmongo "goa.design/authstore/features/usersession/mongo/clients/mongo"
	"goa.design/authstore/usersession"
)

// NewStore builds a user session store on top of the provided client.
func NewStore(client clientsmongo.Client, opts ...usersession.Option) (*usersession.Store, error) {
	if client == nil {
		return nil, errors.New("client is required")
	}
	return usersession.New(client, opts...)
}
