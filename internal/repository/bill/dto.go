package bill

import (
	"encoding/binary"
	"fmt"
	"math"
	"strconv"

	"github.com/inshort-cloud/billfeed/internal/domain"
)

// Hash field names for a stored bill. The vector field name must match the
// FT index schema.
const (
	FieldTitle          = "title"
	FieldBillNumber     = "bill_number"
	FieldBillType       = "bill_type"
	FieldSponsor        = "sponsor"
	FieldCongress       = "congress"
	FieldPolicyArea     = "policy_area"
	FieldLatestAction   = "latest_action"
	FieldIntroducedDate = "introduced_date"
	FieldExcerpt        = "excerpt"
	FieldSummary        = "summary"
	FieldVector         = "vector"
)

// MetadataFields lists the fields a search returns for ranking and display.
// The excerpt is included so summary backfill has bill text to prompt with.
var MetadataFields = []string{
	FieldTitle, FieldBillNumber, FieldBillType, FieldSponsor,
	FieldCongress, FieldPolicyArea, FieldLatestAction,
	FieldIntroducedDate, FieldExcerpt, FieldSummary,
}

// BillToFields flattens a bill into hash fields, vector stored as an FT-compatible blob.
func BillToFields(b *domain.Bill, vector []float32) map[string]string {
	fields := map[string]string{
		FieldTitle:  b.Title,
		FieldVector: EncodeVector(vector),
	}
	if b.BillNumber != "" {
		fields[FieldBillNumber] = b.BillNumber
	}
	if b.BillType != "" {
		fields[FieldBillType] = b.BillType
	}
	if b.Sponsor != "" {
		fields[FieldSponsor] = b.Sponsor
	}
	if b.Congress != 0 {
		fields[FieldCongress] = strconv.Itoa(b.Congress)
	}
	if b.PolicyArea != "" {
		fields[FieldPolicyArea] = b.PolicyArea
	}
	if b.LatestAction != "" {
		fields[FieldLatestAction] = b.LatestAction
	}
	if b.IntroducedDate != "" {
		fields[FieldIntroducedDate] = b.IntroducedDate
	}
	if b.Excerpt != "" {
		fields[FieldExcerpt] = b.Excerpt
	}
	if b.Summary != "" {
		fields[FieldSummary] = b.Summary
	}
	return fields
}

// FieldsToBill reconstructs a bill from hash fields.
func FieldsToBill(id string, fields map[string]string) domain.Bill {
	congress, _ := strconv.Atoi(fields[FieldCongress])
	return domain.Bill{
		ID:             id,
		Title:          fields[FieldTitle],
		BillNumber:     fields[FieldBillNumber],
		BillType:       fields[FieldBillType],
		Sponsor:        fields[FieldSponsor],
		Congress:       congress,
		PolicyArea:     fields[FieldPolicyArea],
		LatestAction:   fields[FieldLatestAction],
		IntroducedDate: fields[FieldIntroducedDate],
		Excerpt:        fields[FieldExcerpt],
		Summary:        fields[FieldSummary],
	}
}

// EncodeVector serializes a vector as little-endian float32 bytes, the format
// FT.SEARCH expects for HASH-stored vector fields.
func EncodeVector(v []float32) string {
	buf := make([]byte, len(v)*4)
	for i, f := range v {
		binary.LittleEndian.PutUint32(buf[i*4:], math.Float32bits(f))
	}
	return string(buf)
}

// DecodeVector reverses EncodeVector.
func DecodeVector(s string) ([]float32, error) {
	if len(s)%4 != 0 {
		return nil, fmt.Errorf("vector blob length %d is not a multiple of 4", len(s))
	}
	v := make([]float32, len(s)/4)
	for i := range v {
		v[i] = math.Float32frombits(binary.LittleEndian.Uint32([]byte(s[i*4 : i*4+4])))
	}
	return v, nil
}
