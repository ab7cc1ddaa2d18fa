package models

// CreateQRCodeRequest is the payload for creating a QR code.
// QRID is a client-generated document ID; reusing one yields already-exists.
type CreateQRCodeRequest struct {
	QRID    string    `json:"qrId" binding:"required"`
	Name    string    `json:"name" binding:"required"`
	Content QRContent `json:"content" binding:"required"`
	Design  QRDesign  `json:"design"`
	Type    string    `json:"type" binding:"required,oneof=static dynamic"`
}
