package config

// configSchema validates the provider configuration file after it has been
// converted to JSON.
const configSchema = `{
  "$schema": "https://json-schema.org/draft/2020-12/schema",
  "type": "object",
  "additionalProperties": false,
  "properties": {
    "logging": {
      "type": "object",
      "additionalProperties": false,
      "properties": {
        "level": {"enum": ["", "debug", "info", "warn", "warning", "error"]},
        "file": {"type": "string"}
      }
    },
    "defaults": {
      "type": "object",
      "additionalProperties": false,
      "properties": {
        "install_prefix": {"type": "string"},
        "architecture": {"type": "string", "pattern": "^[A-Za-z0-9_.-]*$"},
        "install_user": {"type": "string"},
        "repository": {"type": "string"},
        "server": {"type": "string"},
        "server_path": {"type": "string"},
        "cmsrep_script": {"type": "string", "pattern": "^[^/]*$"}
      }
    },
    "download": {
      "type": "object",
      "additionalProperties": false,
      "properties": {
        "scheme": {"enum": ["http", "https"]},
        "insecure": {"type": "boolean"},
        "timeout": {"$ref": "#/$defs/duration"},
        "attempts": {"type": "integer", "minimum": 1, "maximum": 20},
        "delay": {"$ref": "#/$defs/duration"},
        "keyring": {"type": "string"},
        "progress": {"type": "boolean"}
      }
    },
    "strict": {"type": "boolean"}
  },
  "$defs": {
    "duration": {
      "type": "string",
      "pattern": "^([0-9]+(\\.[0-9]+)?(ns|us|ms|s|m|h))+$"
    }
  }
}`
