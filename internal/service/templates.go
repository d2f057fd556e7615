package service

import (
	"fmt"
	"strconv"
	"strings"

	"fleet-erp-backend/internal/domain"
)

func quoteSharedEmail(companyName string, quote *domain.Quote, share *ShareResult) (string, string) {
	subject := fmt.Sprintf("[%s] 장기렌트 견적서가 도착했습니다", companyName)
	body := fmt.Sprintf("안녕하세요.\n\n%s에서 요청하신 장기렌트 견적서를 보내드립니다.\n\n"+
		"월 렌트료: %s원 (VAT 별도)\n보증금: %s원\n계약 기간: %d개월\n\n"+
		"아래 링크에서 견적 내용을 확인하고 전자서명을 진행해 주세요.\n%s\n\n"+
		"링크 유효기간: %s까지\n",
		companyName, formatWon(quote.RentPrice), formatWon(quote.Deposit), quote.Terms.TermMonths,
		share.ShareURL, share.ExpiresAt.Format("2006-01-02 15:04"))
	return subject, body
}

func shareExpiringEmail(companyName string, tok domain.ShareToken, url string) (string, string) {
	subject := fmt.Sprintf("[전자계약] 견적 #%d 공유 링크가 곧 만료됩니다", tok.QuoteID)
	body := fmt.Sprintf("%s 담당자님,\n\n견적 #%d의 서명 링크가 %s에 만료됩니다. 아직 고객 서명이 완료되지 않았습니다.\n\n"+
		"링크: %s\n\n필요하면 견적 화면에서 링크를 다시 공유해 주세요.\n",
		companyName, tok.QuoteID, tok.ExpiresAt.Format("2006-01-02 15:04"), url)
	return subject, body
}

func contractSignedCustomerEmail(companyName, signerName string, c *domain.Contract) (string, string) {
	subject := fmt.Sprintf("[%s] 전자계약 체결이 완료되었습니다", companyName)
	body := fmt.Sprintf("%s 고객님,\n\n%s와의 장기렌트 계약이 정상적으로 체결되었습니다.\n\n"+
		"계약 번호: %d\n계약 시작일: %s\n계약 기간: %d개월\n월 렌트료: %s원 (VAT 별도)\n보증금: %s원\n\n"+
		"이용해 주셔서 감사합니다.\n",
		signerName, companyName, c.ID, c.StartDate.Format("2006-01-02"), c.TermMonths,
		formatWon(c.MonthlyRent), formatWon(c.Deposit))
	return subject, body
}

func contractSignedCompanyEmail(signerName string, c *domain.Contract) (string, string) {
	subject := fmt.Sprintf("[전자계약] %s 고객 서명 완료 (견적 #%d)", signerName, c.QuoteID)
	body := fmt.Sprintf("견적 #%d에 대한 고객 서명이 완료되어 계약 #%d이 생성되었습니다.\n\n"+
		"서명자: %s\n계약 유형: %s\n계약 기간: %d개월\n월 렌트료: %s원\n",
		c.QuoteID, c.ID, signerName, c.ContractType, c.TermMonths, formatWon(c.MonthlyRent))
	return subject, body
}

// formatWon renders an amount with thousands separators
func formatWon(amount int64) string {
	s := strconv.FormatInt(amount, 10)
	neg := strings.HasPrefix(s, "-")
	if neg {
		s = s[1:]
	}
	var b strings.Builder
	pre := len(s) % 3
	if pre > 0 {
		b.WriteString(s[:pre])
	}
	for i := pre; i < len(s); i += 3 {
		if b.Len() > 0 {
			b.WriteByte(',')
		}
		b.WriteString(s[i : i+3])
	}
	if neg {
		return "-" + b.String()
	}
	return b.String()
}
