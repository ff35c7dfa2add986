package normalize

import (
	"github.com/shopdesk/pipeline/pkg/models"
)

// confidenceFloor is the minimum DocQA confidence below which the regex
// fallback is allowed to override a field, ported from merger.py's
// hard-coded 0.7 threshold.
const confidenceFloor = 0.7

// regexConfidence is the minimum confidence assigned to a
// regex-sourced field, ported from merger.py's `max(orig_conf, 0.8)`.
const regexConfidence = 0.8

// MergeFields combines one attachment's DocQA extraction with regex
// fallbacks drawn from the message body and/or ASR transcript, ported
// field-by-field from original_source/common/norm/merger.py.
func MergeFields(doc models.DocFields, bodyText, transcript string) models.NormalizedFields {
	source := make(map[string]models.FieldSource)
	conf := make(map[string]float64)
	text := bodyText + " " + transcript

	orderID := mergeOrderID(doc, text, source, conf)
	amount, currency := mergeAmountCurrency(doc, text, source, conf)
	orderDate := mergeOrderDate(doc, text, source, conf)
	sku := mergeSKU(doc, text, source, conf)

	return models.NormalizedFields{
		OrderID:    orderID,
		Amount:     amount,
		Currency:   currency,
		OrderDate:  orderDate,
		SKU:        sku,
		Source:     source,
		Confidence: conf,
	}
}

func strVal(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

func mergeOrderID(doc models.DocFields, text string, source map[string]models.FieldSource, conf map[string]float64) *string {
	orderID := strVal(doc.OrderID)
	orderConf := doc.Confidence["order_id"]

	if orderID == "" || orderConf < confidenceFloor {
		if regexID := extractOrderID(text); regexID != "" {
			orderID = regexID
			source["order_id"] = models.SourceRegex
			conf["order_id"] = max(orderConf, regexConfidence)
		}
	}
	if orderID != "" {
		if _, already := source["order_id"]; !already {
			source["order_id"] = models.SourceDocQA
			conf["order_id"] = orderConf
		}
		return &orderID
	}
	return nil
}

func mergeAmountCurrency(doc models.DocFields, text string, source map[string]models.FieldSource, conf map[string]float64) (*string, *string) {
	amount := strVal(doc.Amount)
	amountConf := doc.Confidence["amount"]
	currency := strVal(doc.Currency)

	amtRaw, currHint := extractAmountCurrency(text)

	if (amount == "" || amountConf < confidenceFloor) && amtRaw != "" {
		if normAmt, ok := normalizeAmount(amtRaw); ok {
			s := normAmt.String()
			amount = s
			source["amount"] = models.SourceRegex
			conf["amount"] = max(amountConf, regexConfidence)
		}
	} else if amount != "" {
		source["amount"] = models.SourceDocQA
		conf["amount"] = amountConf
	}

	if currency == "" && currHint != "" {
		currency = normalizeCurrency(currHint)
		source["currency"] = models.SourceRegex
		conf["currency"] = regexConfidence
	} else if currency != "" {
		currency = normalizeCurrency(currency)
		source["currency"] = models.SourceDocQA
		c := doc.Confidence["currency"]
		if c == 0 {
			c = 0.7
		}
		conf["currency"] = c
	}

	var amountPtr, currencyPtr *string
	if amount != "" {
		amountPtr = &amount
	}
	if currency != "" {
		currencyPtr = &currency
	}
	return amountPtr, currencyPtr
}

func mergeOrderDate(doc models.DocFields, text string, source map[string]models.FieldSource, conf map[string]float64) *string {
	orderDate := strVal(doc.OrderDate)
	dateConf := doc.Confidence["order_date"]
	orderConf := doc.Confidence["order_id"]

	if orderDate == "" || dateConf < confidenceFloor {
		if parsed, ok := parseDateEU(text); ok {
			iso := parsed.Format("2006-01-02")
			orderDate = iso
			source["order_date"] = models.SourceRegex
			conf["order_date"] = max(orderConf, regexConfidence)
		}
	} else {
		source["order_date"] = models.SourceDocQA
		conf["order_date"] = dateConf
	}

	if orderDate != "" {
		if _, already := source["order_date"]; !already {
			source["order_date"] = models.SourceDocQA
			conf["order_date"] = dateConf
		}
		return &orderDate
	}
	return nil
}

func mergeSKU(doc models.DocFields, text string, source map[string]models.FieldSource, conf map[string]float64) *string {
	sku := strVal(doc.SKU)
	skuConf := doc.Confidence["sku"]

	if sku == "" || skuConf < confidenceFloor {
		if regexSKU := extractSKU(text); regexSKU != "" {
			sku = regexSKU
			source["sku"] = models.SourceRegex
			conf["sku"] = max(skuConf, regexConfidence)
		}
	} else {
		source["sku"] = models.SourceDocQA
		conf["sku"] = skuConf
	}

	if sku != "" {
		if _, already := source["sku"]; !already {
			source["sku"] = models.SourceDocQA
			conf["sku"] = skuConf
		}
		return &sku
	}
	return nil
}
