package app

import "github.com/agentstation/orgsync/internal/appcontext"

var _ appcontext.Interface = (*App)(nil)
