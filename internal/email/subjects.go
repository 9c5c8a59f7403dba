package email

const (
	subjectDiligenceAssigned = "Nova diligência atribuída a você"
	subjectStatusReverted    = "Atualização de status da sua diligência"
	subjectPaymentConfirmed  = "Pagamento confirmado"
	subjectPayoutConfirmed   = "Repasse confirmado"
	subjectProofReceived     = "Comprovante de pagamento recebido"
	subjectProofApproved     = "Comprovante de pagamento aprovado"
	subjectProofRejected     = "Comprovante de pagamento recusado"
)
