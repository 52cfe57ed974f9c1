package metadata

import (
	"archive/zip"
	"bytes"
	"encoding/xml"
	"fmt"
)

// Document keys returned by RenderXML.
const (
	DocCustomObjects   = "customObjects"
	DocFlows           = "flows"
	DocValidationRules = "validationRules"
	DocPermissionSets  = "permissionSets"
	DocPackage         = "package"
)

// DocumentKeys lists document keys in export order.
var DocumentKeys = []string{DocCustomObjects, DocFlows, DocValidationRules, DocPermissionSets, DocPackage}

// Documents maps a document key to a rendered XML document.
type Documents map[string][]byte

type customObjectsDoc struct {
	XMLName xml.Name `xml:"CustomObjects"`
	Items   []CustomObject
}

type flowsDoc struct {
	XMLName xml.Name `xml:"Flows"`
	Items   []Flow
}

type validationRulesDoc struct {
	XMLName xml.Name `xml:"ValidationRules"`
	Items   []ValidationRule
}

type permissionSetsDoc struct {
	XMLName xml.Name `xml:"PermissionSets"`
	Items   []PermissionSet
}

// RenderXML renders the selected components of a package as XML documents.
// Each component document wraps its elements in a plural root element; the
// package document is the manifest.
func RenderXML(p Package) (Documents, error) {
	docs := make(Documents, len(DocumentKeys))
	parts := []struct {
		key string
		v   any
	}{
		{DocCustomObjects, customObjectsDoc{Items: p.CustomObjects()}},
		{DocFlows, flowsDoc{Items: p.Flows()}},
		{DocValidationRules, validationRulesDoc{Items: p.ValidationRules()}},
		{DocPermissionSets, permissionSetsDoc{Items: p.PermissionSets()}},
		{DocPackage, p.Manifest()},
	}
	for _, part := range parts {
		b, err := marshalDocument(part.v)
		if err != nil {
			return nil, fmt.Errorf("render %s: %w", part.key, err)
		}
		docs[part.key] = b
	}
	return docs, nil
}

func marshalDocument(v any) ([]byte, error) {
	body, err := xml.MarshalIndent(v, "", "    ")
	if err != nil {
		return nil, err
	}
	var buf bytes.Buffer
	buf.WriteString(xml.Header)
	buf.Write(body)
	buf.WriteByte('\n')
	return buf.Bytes(), nil
}

// ExportFileName returns the download name for a rendered document.
func ExportFileName(domain, industry, key string) string {
	return APIName(industry, domain) + "_" + key + ".xml"
}

// Bundle renders the package and archives every document into a zip file.
func Bundle(p Package, domain, industry string) ([]byte, error) {
	docs, err := RenderXML(p)
	if err != nil {
		return nil, err
	}

	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	for _, key := range DocumentKeys {
		w, err := zw.Create(ExportFileName(domain, industry, key))
		if err != nil {
			return nil, fmt.Errorf("bundle %s: %w", key, err)
		}
		if _, err := w.Write(docs[key]); err != nil {
			return nil, fmt.Errorf("bundle %s: %w", key, err)
		}
	}
	if err := zw.Close(); err != nil {
		return nil, fmt.Errorf("bundle close: %w", err)
	}
	return buf.Bytes(), nil
}

// BundleFileName returns the download name for a zip bundle.
func BundleFileName(domain, industry string) string {
	return APIName(industry, domain) + "_metadata.zip"
}
