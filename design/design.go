package design

import (
	. "goa.design/goa/v3/dsl"
)

// API definition
var _ = API("spacedetect", func() {
	Title("Spacecraft Detection Service")
	Description("Detects safety equipment in spacecraft imagery and returns annotated JPEG results. " +
		"When auth is enabled every route except /health, /info and /auth/login needs a Bearer token.")
	Version("1.0")
	Server("spacedetect", func() {
		Host("localhost", func() {
			URI("http://localhost:8000")
		})
	})
})

// Data types
var BoundingBox = Type("BoundingBox", func() {
	Description("Axis-aligned box in source image pixels; may extend past the image edges")
	Field(1, "x", Float64, "Left edge")
	Field(2, "y", Float64, "Top edge")
	Field(3, "width", Float64, "Box width")
	Field(4, "height", Float64, "Box height")
	Required("x", "y", "width", "height")
})

var Detection = Type("Detection", func() {
	Description("One detected object")
	Field(1, "class_id", Int, "Index into model_info.labels")
	Field(2, "confidence", Float64, "Detection confidence", func() {
		Minimum(0)
		Maximum(1)
	})
	Field(3, "bbox", BoundingBox, "Object bounds")
	Required("class_id", "confidence", "bbox")
})

var ModelInfo = Type("ModelInfo", func() {
	Description("Served model description")
	Field(1, "model_name", String, "Model display name")
	Field(2, "model_path", String, "Model artifact location")
	Field(3, "input_shape", ArrayOf(Int), "Model input tensor shape")
	Field(4, "num_classes", Int, "Number of classes")
	Field(5, "labels", ArrayOf(String), "Class labels indexed by class id")
	Required("model_name", "model_path", "input_shape", "num_classes", "labels")
})

var DetectionResponse = Type("DetectionResponse", func() {
	Description("Detection result with the annotated image")
	Field(1, "detections", ArrayOf(Detection), "Detections in model output order")
	Field(2, "model_info", ModelInfo, "Model that produced the detections")
	Field(3, "processed_image", String, "Base64 JPEG with boxes and labels drawn")
	Required("detections", "model_info", "processed_image")
})

var HealthResult = Type("HealthResult", func() {
	Description("Service health")
	Field(1, "status", String, "Always healthy while the process serves requests")
	Field(2, "model_loaded", Boolean, "Whether a real model backs detection")
	Field(3, "mode", String, "Detection mode", func() {
		Enum("real", "fallback")
	})
	Required("status", "model_loaded", "mode")
})

var ArtifactRecord = Type("ArtifactRecord", func() {
	Description("Saved annotated image")
	Field(1, "id", String, "Artifact identifier", func() {
		MinLength(8)
		MaxLength(8)
	})
	Field(2, "path", String, "Location of the saved JPEG")
	Field(3, "filename", String, "Client supplied file name")
	Field(4, "file_size", Int64, "Client supplied upload size")
	Field(5, "detections", Int, "Number of detections")
	Field(6, "class_ids", ArrayOf(Int), "Detected class ids")
	Field(7, "mode", String, "Detection mode", func() {
		Enum("real", "fallback")
	})
	Field(8, "created_at", String, "Creation timestamp", func() {
		Format(FormatDateTime)
	})
	Required("id", "path", "detections", "class_ids", "mode", "created_at")
})

var ArtifactList = Type("ArtifactList", func() {
	Description("Page of saved artifacts, newest first")
	Field(1, "artifacts", ArrayOf(ArtifactRecord), "Artifacts")
	Field(2, "count", Int, "Number of artifacts returned")
	Required("artifacts", "count")
})

var LoginResult = Type("LoginResult", func() {
	Description("Issued session token")
	Field(1, "token", String, "JWT bearer token")
	Field(2, "expires_at", Int64, "Expiry as a unix timestamp")
	Required("token", "expires_at")
})

var AuthStatus = Type("AuthStatus", func() {
	Description("Caller authentication state")
	Field(1, "enabled", Boolean, "Whether auth is enabled")
	Field(2, "authenticated", Boolean, "Whether the request carried a valid token")
	Field(3, "username", String, "Token subject")
	Field(4, "token_id", String, "Token jti", func() {
		Format(FormatUUID)
	})
	Field(5, "expires_at", Int64, "Token expiry as a unix timestamp")
	Required("enabled", "authenticated")
})

var DetectionEvent = Type("DetectionEvent", func() {
	Description("Live notification sent after each detection")
	Field(1, "type", String, "Message type", func() {
		Enum("detection")
	})
	Field(2, "artifact_id", String, "Artifact identifier")
	Field(3, "filename", String, "Client supplied file name")
	Field(4, "mode", String, "Detection mode")
	Field(5, "timestamp", String, "Detection time", func() {
		Format(FormatDateTime)
	})
	Field(6, "image_width", Int, "Source image width")
	Field(7, "image_height", Int, "Source image height")
	Field(8, "objects", ArrayOf(DetectedObject), "Detected objects")
	Required("type", "artifact_id", "mode", "timestamp", "image_width", "image_height", "objects")
})

var DetectedObject = Type("DetectedObject", func() {
	Field(1, "class_id", Int, "Class id")
	Field(2, "label", String, "Resolved label")
	Field(3, "confidence", Float64, "Detection confidence")
	Field(4, "bbox", ArrayOf(Float64), "x, y, width, height in pixels")
	Required("class_id", "label", "confidence", "bbox")
})

// Detection service
var _ = Service("spacedetect", func() {
	Description("Spacecraft safety equipment detection")

	Error("unauthorized", ErrorResult, "Missing, invalid or expired token, or bad credentials")
	HTTP(func() {
		Response("unauthorized", StatusUnauthorized)
	})

	Method("detect", func() {
		Description("Detect objects in an image. Multipart uploads send the image in the file field.")
		Payload(func() {
			Field(1, "image", String, "Base64 image, optionally as a data URL")
			Field(2, "filename", String, "Original file name")
			Field(3, "file_size", Int64, "Original file size in bytes")
			Required("image")
		})
		Result(DetectionResponse)
		Error("decode_error", ErrorResult, "Image payload could not be decoded", func() {
			Fault()
		})
		Error("inference_error", ErrorResult, "Detection backend failed", func() {
			Fault()
		})
		HTTP(func() {
			POST("/detect")
			Response(StatusOK)
			Response("decode_error", StatusInternalServerError)
			Response("inference_error", StatusInternalServerError)
		})
	})

	Method("health", func() {
		Description("Report service health")
		Result(HealthResult)
		HTTP(func() {
			GET("/health")
			Response(StatusOK)
		})
	})

	Method("info", func() {
		Description("Describe the served model")
		Result(ModelInfo)
		HTTP(func() {
			GET("/info")
			Response(StatusOK)
		})
	})

	Method("list_artifacts", func() {
		Description("List saved annotated images")
		Payload(func() {
			Field(1, "limit", Int, "Maximum number of artifacts; values above 200 are clamped", func() {
				Default(20)
				Minimum(0)
			})
		})
		Result(ArtifactList)
		Error("not_found", ErrorResult, "Artifact persistence is disabled")
		HTTP(func() {
			GET("/artifacts")
			Param("limit")
			Response(StatusOK)
			Response("not_found", StatusNotFound)
		})
	})

	Method("get_artifact", func() {
		Description("Get a saved artifact by id")
		Payload(func() {
			Field(1, "id", String, "Artifact identifier")
			Required("id")
		})
		Result(ArtifactRecord)
		Error("not_found", ErrorResult, "Artifact not found")
		HTTP(func() {
			GET("/artifacts/{id}")
			Response(StatusOK)
			Response("not_found", StatusNotFound)
		})
	})

	Method("login", func() {
		Description("Exchange credentials for a session token")
		Payload(func() {
			Field(1, "username", String, "Username")
			Field(2, "password", String, "Password")
			Required("username", "password")
		})
		Result(LoginResult)
		HTTP(func() {
			POST("/auth/login")
			Response(StatusOK)
		})
	})

	Method("auth_status", func() {
		Description("Report the caller's authentication state")
		Result(AuthStatus)
		HTTP(func() {
			GET("/auth/status")
			Response(StatusOK)
		})
	})

	Method("detection_stream", func() {
		Description("Stream detection events over a WebSocket. Browsers pass the token as ?token=.")
		StreamingResult(DetectionEvent)
		HTTP(func() {
			GET("/ws/detections")
			Response(StatusOK)
		})
	})
})
