// Copyright 2026 The ds9samp Authors
// SPDX-License-Identifier: Apache-2.0

package samp

import (
	"bytes"
	"encoding/xml"
	"fmt"
	"io"
	"sort"
	"strconv"
	"strings"
)

// The Standard Profile transports SAMP calls as XML-RPC documents. The
// codec here covers exactly the subset the profile uses: method calls
// and responses whose values are strings, arrays, and structs. Struct
// members are written in sorted key order so that encoded output is
// deterministic and testable byte-for-byte.

// marshalCall encodes an XML-RPC methodCall. Every parameter must be a
// SAMP value: string, []any, []string, map[string]any, or
// map[string]string, nested arbitrarily.
func marshalCall(method string, params []any) ([]byte, error) {
	var buffer bytes.Buffer
	buffer.WriteString(xml.Header)
	buffer.WriteString("<methodCall><methodName>")
	if err := xml.EscapeText(&buffer, []byte(method)); err != nil {
		return nil, fmt.Errorf("samp: encoding method name: %w", err)
	}
	buffer.WriteString("</methodName><params>")
	for _, param := range params {
		buffer.WriteString("<param>")
		if err := encodeValue(&buffer, param); err != nil {
			return nil, err
		}
		buffer.WriteString("</param>")
	}
	buffer.WriteString("</params></methodCall>")
	return buffer.Bytes(), nil
}

// marshalResponse encodes a successful methodResponse carrying a single
// return value.
func marshalResponse(value any) ([]byte, error) {
	var buffer bytes.Buffer
	buffer.WriteString(xml.Header)
	buffer.WriteString("<methodResponse><params><param>")
	if err := encodeValue(&buffer, value); err != nil {
		return nil, err
	}
	buffer.WriteString("</param></params></methodResponse>")
	return buffer.Bytes(), nil
}

// marshalFault encodes a fault methodResponse. The faultCode member is
// an XML-RPC int, the one place the wire format steps outside the SAMP
// value set.
func marshalFault(code int, message string) ([]byte, error) {
	var buffer bytes.Buffer
	buffer.WriteString(xml.Header)
	buffer.WriteString("<methodResponse><fault><value><struct>")
	buffer.WriteString("<member><name>faultCode</name><value><int>")
	buffer.WriteString(strconv.Itoa(code))
	buffer.WriteString("</int></value></member>")
	buffer.WriteString("<member><name>faultString</name><value><string>")
	if err := xml.EscapeText(&buffer, []byte(message)); err != nil {
		return nil, fmt.Errorf("samp: encoding fault string: %w", err)
	}
	buffer.WriteString("</string></value></member>")
	buffer.WriteString("</struct></value></fault></methodResponse>")
	return buffer.Bytes(), nil
}

// encodeValue writes one <value> element for a SAMP value.
func encodeValue(buffer *bytes.Buffer, value any) error {
	switch v := value.(type) {
	case string:
		buffer.WriteString("<value><string>")
		if err := xml.EscapeText(buffer, []byte(v)); err != nil {
			return fmt.Errorf("samp: encoding string value: %w", err)
		}
		buffer.WriteString("</string></value>")
	case []any:
		buffer.WriteString("<value><array><data>")
		for _, item := range v {
			if err := encodeValue(buffer, item); err != nil {
				return err
			}
		}
		buffer.WriteString("</data></array></value>")
	case []string:
		items := make([]any, len(v))
		for i, s := range v {
			items[i] = s
		}
		return encodeValue(buffer, items)
	case map[string]any:
		keys := make([]string, 0, len(v))
		for key := range v {
			keys = append(keys, key)
		}
		sort.Strings(keys)
		buffer.WriteString("<value><struct>")
		for _, key := range keys {
			buffer.WriteString("<member><name>")
			if err := xml.EscapeText(buffer, []byte(key)); err != nil {
				return fmt.Errorf("samp: encoding member name: %w", err)
			}
			buffer.WriteString("</name>")
			if err := encodeValue(buffer, v[key]); err != nil {
				return err
			}
			buffer.WriteString("</member>")
		}
		buffer.WriteString("</struct></value>")
	case map[string]string:
		converted := make(map[string]any, len(v))
		for key, s := range v {
			converted[key] = s
		}
		return encodeValue(buffer, converted)
	default:
		return fmt.Errorf("samp: cannot encode %T as a SAMP value", value)
	}
	return nil
}

// unmarshalResponse decodes a methodResponse into its single return
// value. A fault response is returned as a *Fault error.
func unmarshalResponse(data []byte) (any, error) {
	decoder := xml.NewDecoder(bytes.NewReader(data))
	for {
		token, err := decoder.Token()
		if err == io.EOF {
			return nil, fmt.Errorf("samp: method response has no value")
		}
		if err != nil {
			return nil, fmt.Errorf("samp: decoding method response: %w", err)
		}
		start, ok := token.(xml.StartElement)
		if !ok {
			continue
		}
		switch start.Name.Local {
		case "methodResponse", "params", "param":
			// Descend.
		case "value":
			return decodeValue(decoder)
		case "fault":
			return nil, decodeFault(decoder)
		default:
			if err := decoder.Skip(); err != nil {
				return nil, fmt.Errorf("samp: decoding method response: %w", err)
			}
		}
	}
}

// unmarshalCall decodes a methodCall into its method name and parameter
// values. This is the hub's side of the conversation; tests standing in
// for a hub use it to inspect requests.
func unmarshalCall(data []byte) (string, []any, error) {
	decoder := xml.NewDecoder(bytes.NewReader(data))
	method := ""
	var params []any
	for {
		token, err := decoder.Token()
		if err == io.EOF {
			break
		}
		if err != nil {
			return "", nil, fmt.Errorf("samp: decoding method call: %w", err)
		}
		start, ok := token.(xml.StartElement)
		if !ok {
			continue
		}
		switch start.Name.Local {
		case "methodCall", "params", "param":
			// Descend.
		case "methodName":
			method, err = readCharData(decoder, "methodName")
			if err != nil {
				return "", nil, err
			}
		case "value":
			value, err := decodeValue(decoder)
			if err != nil {
				return "", nil, err
			}
			params = append(params, value)
		default:
			if err := decoder.Skip(); err != nil {
				return "", nil, fmt.Errorf("samp: decoding method call: %w", err)
			}
		}
	}
	if method == "" {
		return "", nil, fmt.Errorf("samp: method call has no methodName")
	}
	return method, params, nil
}

// decodeValue consumes one value body. The decoder must be positioned
// just past the <value> start tag; on return it has consumed the
// matching end tag.
//
// Untyped content is a string per XML-RPC. The scalar types some hub
// implementations emit (int, boolean, double) fold to their literal
// text, keeping everything inside the SAMP type system.
func decodeValue(decoder *xml.Decoder) (any, error) {
	var text strings.Builder
	var typed any
	hasTyped := false
	for {
		token, err := decoder.Token()
		if err != nil {
			return nil, fmt.Errorf("samp: decoding value: %w", err)
		}
		switch t := token.(type) {
		case xml.CharData:
			text.Write(t)
		case xml.StartElement:
			if hasTyped {
				return nil, fmt.Errorf("samp: value has more than one type element")
			}
			hasTyped = true
			switch t.Name.Local {
			case "string", "i4", "int", "double", "boolean", "dateTime.iso8601", "base64":
				content, err := readCharData(decoder, t.Name.Local)
				if err != nil {
					return nil, err
				}
				typed = content
			case "array":
				typed, err = decodeArray(decoder)
				if err != nil {
					return nil, err
				}
			case "struct":
				typed, err = decodeStruct(decoder)
				if err != nil {
					return nil, err
				}
			case "nil":
				if err := decoder.Skip(); err != nil {
					return nil, fmt.Errorf("samp: decoding value: %w", err)
				}
				typed = ""
			default:
				return nil, fmt.Errorf("samp: unsupported value type <%s>", t.Name.Local)
			}
		case xml.EndElement:
			if hasTyped {
				return typed, nil
			}
			return text.String(), nil
		}
	}
}

// decodeArray consumes an array body through its end tag.
func decodeArray(decoder *xml.Decoder) ([]any, error) {
	items := []any{}
	for {
		token, err := decoder.Token()
		if err != nil {
			return nil, fmt.Errorf("samp: decoding array: %w", err)
		}
		switch t := token.(type) {
		case xml.StartElement:
			switch t.Name.Local {
			case "data":
				// Descend.
			case "value":
				item, err := decodeValue(decoder)
				if err != nil {
					return nil, err
				}
				items = append(items, item)
			default:
				return nil, fmt.Errorf("samp: unexpected <%s> in array", t.Name.Local)
			}
		case xml.EndElement:
			if t.Name.Local == "array" {
				return items, nil
			}
		}
	}
}

// decodeStruct consumes a struct body through its end tag.
func decodeStruct(decoder *xml.Decoder) (map[string]any, error) {
	result := map[string]any{}
	for {
		token, err := decoder.Token()
		if err != nil {
			return nil, fmt.Errorf("samp: decoding struct: %w", err)
		}
		switch t := token.(type) {
		case xml.StartElement:
			if t.Name.Local != "member" {
				return nil, fmt.Errorf("samp: unexpected <%s> in struct", t.Name.Local)
			}
			name, value, err := decodeMember(decoder)
			if err != nil {
				return nil, err
			}
			result[name] = value
		case xml.EndElement:
			if t.Name.Local == "struct" {
				return result, nil
			}
		}
	}
}

// decodeMember consumes one struct member through its end tag.
func decodeMember(decoder *xml.Decoder) (string, any, error) {
	name := ""
	var value any
	haveName := false
	haveValue := false
	for {
		token, err := decoder.Token()
		if err != nil {
			return "", nil, fmt.Errorf("samp: decoding struct member: %w", err)
		}
		switch t := token.(type) {
		case xml.StartElement:
			switch t.Name.Local {
			case "name":
				name, err = readCharData(decoder, "name")
				if err != nil {
					return "", nil, err
				}
				haveName = true
			case "value":
				value, err = decodeValue(decoder)
				if err != nil {
					return "", nil, err
				}
				haveValue = true
			default:
				return "", nil, fmt.Errorf("samp: unexpected <%s> in struct member", t.Name.Local)
			}
		case xml.EndElement:
			if t.Name.Local == "member" {
				if !haveName || !haveValue {
					return "", nil, fmt.Errorf("samp: struct member missing name or value")
				}
				return name, value, nil
			}
		}
	}
}

// decodeFault consumes a fault body and maps it to a *Fault.
func decodeFault(decoder *xml.Decoder) error {
	for {
		token, err := decoder.Token()
		if err != nil {
			return fmt.Errorf("samp: decoding fault: %w", err)
		}
		switch t := token.(type) {
		case xml.StartElement:
			if t.Name.Local != "value" {
				return fmt.Errorf("samp: unexpected <%s> in fault", t.Name.Local)
			}
			value, err := decodeValue(decoder)
			if err != nil {
				return err
			}
			faultMap, ok := value.(map[string]any)
			if !ok {
				return fmt.Errorf("samp: fault value is %T, want a map", value)
			}
			code := 0
			if codeText, ok := faultMap["faultCode"].(string); ok {
				code, _ = strconv.Atoi(codeText)
			}
			message, _ := faultMap["faultString"].(string)
			return &Fault{Code: code, Message: message}
		case xml.EndElement:
			return fmt.Errorf("samp: fault has no value")
		}
	}
}

// readCharData collects the character data of the element named name
// through its end tag.
func readCharData(decoder *xml.Decoder, name string) (string, error) {
	var text strings.Builder
	for {
		token, err := decoder.Token()
		if err != nil {
			return "", fmt.Errorf("samp: decoding <%s>: %w", name, err)
		}
		switch t := token.(type) {
		case xml.CharData:
			text.Write(t)
		case xml.EndElement:
			return text.String(), nil
		case xml.StartElement:
			return "", fmt.Errorf("samp: unexpected <%s> inside <%s>", t.Name.Local, name)
		}
	}
}
