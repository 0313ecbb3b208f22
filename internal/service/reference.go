package service

import "fmt"

// ExternalReference builds the deterministic reference attached to every
// checkout so webhook processing can recover tenant, user and optionally
// the registration without a database lookup:
//
//	cliente_<tenantID>_usuario_<userID>[_inscricao_<registrationID>]
func ExternalReference(tenantID, userID, registrationID string) string {
	ref := fmt.Sprintf("cliente_%s_usuario_%s", tenantID, userID)
	if registrationID != "" {
		ref += fmt.Sprintf("_inscricao_%s", registrationID)
	}
	return ref
}
