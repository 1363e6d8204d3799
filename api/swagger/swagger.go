package swagger

import "github.com/swaggo/swag"

const docTemplate = `{
    "swagger": "2.0",
    "info": {
        "title": "Marks Management API",
        "description": "School mark management with a student-driven correction workflow",
        "version": "1.0.0"
    },
    "basePath": "/api/v1",
    "schemes": [
        "http"
    ],
    "tags": [
        {"name": "Auth", "description": "Authentication"},
        {"name": "Marks", "description": "Mark entry and reads"},
        {"name": "Corrections", "description": "Mark correction workflow"},
        {"name": "Catalog", "description": "Classes, subjects and exams"},
        {"name": "Students", "description": "Student roster"},
        {"name": "Employees", "description": "Staff and teaching assignments"},
        {"name": "Exports", "description": "CSV and PDF downloads"}
    ],
    "paths": {
        "/auth/login": {
            "post": {
                "tags": ["Auth"],
                "summary": "Authenticate with email and password",
                "responses": {
                    "200": {"description": "Token issued"},
                    "401": {"description": "Invalid credentials"}
                }
            }
        },
        "/auth/me": {
            "get": {
                "tags": ["Auth"],
                "summary": "Acting user's profile",
                "responses": {
                    "200": {"description": "OK"}
                }
            }
        },
        "/auth/change-password": {
            "post": {
                "tags": ["Auth"],
                "summary": "Change password",
                "responses": {
                    "204": {"description": "Changed"}
                }
            }
        },
        "/marks": {
            "get": {
                "tags": ["Marks"],
                "summary": "List marks",
                "responses": {
                    "200": {"description": "OK"}
                }
            },
            "put": {
                "tags": ["Marks"],
                "summary": "Record or update a mark",
                "responses": {
                    "200": {"description": "Saved"},
                    "403": {"description": "Not assigned to this class and subject"}
                }
            }
        },
        "/marks/{id}": {
            "get": {
                "tags": ["Marks"],
                "summary": "Get one mark",
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"}
                ],
                "responses": {
                    "200": {"description": "OK"},
                    "404": {"description": "Not found"}
                }
            }
        },
        "/corrections": {
            "post": {
                "tags": ["Corrections"],
                "summary": "Submit a mark correction request",
                "responses": {
                    "201": {"description": "Created"},
                    "422": {"description": "No teacher assigned for this class and subject"}
                }
            }
        },
        "/corrections/{id}": {
            "get": {
                "tags": ["Corrections"],
                "summary": "Get one correction request",
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"}
                ],
                "responses": {
                    "200": {"description": "OK"},
                    "404": {"description": "Not found"}
                }
            }
        },
        "/corrections/{id}/teacher-approve": {
            "post": {
                "tags": ["Corrections"],
                "summary": "Approve a pending request as the reviewing teacher",
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"}
                ],
                "responses": {
                    "200": {"description": "Approved"},
                    "409": {"description": "Request status does not allow this action"}
                }
            }
        },
        "/corrections/{id}/teacher-reject": {
            "post": {
                "tags": ["Corrections"],
                "summary": "Reject a pending request as the reviewing teacher",
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"}
                ],
                "responses": {
                    "200": {"description": "Rejected"},
                    "409": {"description": "Request status does not allow this action"}
                }
            }
        },
        "/corrections/{id}/admin-approve": {
            "post": {
                "tags": ["Corrections"],
                "summary": "Finalise a teacher-approved request and write the corrected mark",
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"}
                ],
                "responses": {
                    "200": {"description": "Approved, mark written"},
                    "409": {"description": "Request status does not allow this action"},
                    "502": {"description": "Failed to persist the corrected mark"}
                }
            }
        },
        "/corrections/{id}/admin-override-approve": {
            "post": {
                "tags": ["Corrections"],
                "summary": "Approve a request still awaiting teacher review",
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"}
                ],
                "responses": {
                    "200": {"description": "Approved, mark written"},
                    "403": {"description": "Override disabled"}
                }
            }
        },
        "/corrections/{id}/admin-reject": {
            "post": {
                "tags": ["Corrections"],
                "summary": "Reject a request as admin",
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"}
                ],
                "responses": {
                    "200": {"description": "Rejected"},
                    "409": {"description": "Request status does not allow this action"}
                }
            }
        },
        "/corrections/pending/teacher": {
            "get": {
                "tags": ["Corrections"],
                "summary": "Acting teacher's review queue",
                "responses": {
                    "200": {"description": "OK"}
                }
            }
        },
        "/corrections/pending/admin": {
            "get": {
                "tags": ["Corrections"],
                "summary": "Requests awaiting the final admin decision",
                "responses": {
                    "200": {"description": "OK"}
                }
            }
        },
        "/corrections/history": {
            "get": {
                "tags": ["Corrections"],
                "summary": "A student's correction history",
                "responses": {
                    "200": {"description": "OK"}
                }
            }
        },
        "/corrections/statistics": {
            "get": {
                "tags": ["Corrections"],
                "summary": "Aggregate correction counts by status",
                "responses": {
                    "200": {"description": "OK"}
                }
            }
        },
        "/classes": {
            "get": {
                "tags": ["Catalog"],
                "summary": "List classes",
                "responses": {"200": {"description": "OK"}}
            },
            "post": {
                "tags": ["Catalog"],
                "summary": "Create a class",
                "responses": {"201": {"description": "Created"}}
            }
        },
        "/subjects": {
            "get": {
                "tags": ["Catalog"],
                "summary": "List subjects",
                "responses": {"200": {"description": "OK"}}
            },
            "post": {
                "tags": ["Catalog"],
                "summary": "Create a subject",
                "responses": {"201": {"description": "Created"}}
            }
        },
        "/exams": {
            "get": {
                "tags": ["Catalog"],
                "summary": "List exams",
                "responses": {"200": {"description": "OK"}}
            },
            "post": {
                "tags": ["Catalog"],
                "summary": "Create an exam",
                "responses": {"201": {"description": "Created"}}
            }
        },
        "/students": {
            "get": {
                "tags": ["Students"],
                "summary": "List students",
                "responses": {"200": {"description": "OK"}}
            },
            "post": {
                "tags": ["Students"],
                "summary": "Register a student",
                "responses": {"201": {"description": "Created"}}
            }
        },
        "/employees": {
            "get": {
                "tags": ["Employees"],
                "summary": "List employees",
                "responses": {"200": {"description": "OK"}}
            },
            "post": {
                "tags": ["Employees"],
                "summary": "Register an employee with assignments",
                "responses": {"201": {"description": "Created"}}
            }
        },
        "/exports/marks": {
            "get": {
                "tags": ["Exports"],
                "summary": "Download a mark sheet",
                "responses": {"200": {"description": "File"}}
            }
        },
        "/exports/corrections": {
            "get": {
                "tags": ["Exports"],
                "summary": "Download correction history",
                "responses": {"200": {"description": "File"}}
            }
        }
    },
    "definitions": {
        "APIError": {
            "type": "object",
            "properties": {
                "code": {"type": "string"},
                "message": {"type": "string"},
                "status": {"type": "integer"}
            }
        },
        "ResponseEnvelope": {
            "type": "object",
            "properties": {
                "data": {"type": "object"},
                "error": {"$ref": "#/definitions/APIError"},
                "pagination": {"type": "object"},
                "meta": {"type": "object"}
            }
        }
    }
}`

type swaggerDoc struct{}

// ReadDoc returns the Swagger document.
func (s *swaggerDoc) ReadDoc() string {
	return docTemplate
}

func init() {
	swag.Register(swag.Name, &swaggerDoc{})
}
