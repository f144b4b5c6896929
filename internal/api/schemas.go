package api

const createRequestSchema = `{
  "type": "object",
  "additionalProperties": false,
  "required": ["title", "items"],
  "properties": {
    "title": {"type": "string", "minLength": 1, "maxLength": 255},
    "description": {"type": "string", "maxLength": 2000},
    "residence_id": {"type": "string", "maxLength": 100},
    "month": {"type": "integer", "minimum": 1, "maximum": 12},
    "year": {"type": "integer", "minimum": 2000, "maximum": 2200},
    "is_template": {"type": "boolean"},
    "items": {
      "type": "array",
      "items": {
        "type": "object",
        "additionalProperties": false,
        "required": ["title", "quantity", "estimated_cost"],
        "properties": {
          "title": {"type": "string", "minLength": 1, "maxLength": 255},
          "description": {"type": "string", "maxLength": 2000},
          "quantity": {"type": "integer", "minimum": 1},
          "estimated_cost": {"type": "number", "minimum": 0},
          "category": {"type": "string", "enum": ["utilities", "maintenance", "supplies", "equipment", "services", "other"]},
          "quotations": {
            "type": "array",
            "items": {
              "type": "object",
              "additionalProperties": false,
              "required": ["provider", "amount"],
              "properties": {
                "provider": {"type": "string", "minLength": 1, "maxLength": 255},
                "amount": {"type": "number", "exclusiveMinimum": 0},
                "is_selected": {"type": "boolean"}
              }
            }
          }
        }
      }
    }
  }
}`

const paySchema = `{
  "type": "object",
  "additionalProperties": false,
  "required": ["payment_method"],
  "properties": {
    "payment_method": {"type": "string", "enum": ["cash", "bank_transfer", "cheque", "mpesa", "mtn_momo", "airtel_money", "visa", "mastercard"]}
  }
}`

const rejectSchema = `{
  "type": "object",
  "additionalProperties": false,
  "required": ["reason"],
  "properties": {
    "reason": {"type": "string", "minLength": 1, "maxLength": 2000}
  }
}`
