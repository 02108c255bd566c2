package template

// DefaultSkeleton is the built-in Python MCP service skeleton used when no
// template is available. It shows the LLM the expected shape: a FastMCP
// tool, an SSE app with a health endpoint, and --host/--port arguments.
const DefaultSkeleton = `import argparse
import logging
import time

import uvicorn
from fastapi.responses import JSONResponse
from mcp.server import FastMCP, Server
from mcp.server.sse import SseServerTransport
from starlette.applications import Starlette
from starlette.routing import Mount, Route

mcp = FastMCP("example.py")

logger = logging.getLogger(__name__)


@mcp.tool()
async def example_function(param1: str, param2: int):
    """
    Example MCP tool
    :param param1: Input parameter 1
    :param param2: Input parameter 2
    :return: Output result
    """
    result = f"Process {param1} and {param2}"
    return result


async def health_check(request):
    """Health check endpoint"""
    return JSONResponse({"status": "healthy", "timestamp": int(time.time())})


def create_starlette_app(mcp_server: Server, *, debug: bool = False):
    """Create a Starlette application that serves the MCP service"""
    sse = SseServerTransport("/messages/")

    async def handle_sse(request):
        async with sse.connect_sse(
            request.scope,
            request.receive,
            request._send,
        ) as (read_stream, write_stream):
            await mcp_server.run(
                read_stream,
                write_stream,
                mcp_server.create_initialization_options(),
            )

    return Starlette(
        debug=debug,
        routes=[
            Route("/sse", endpoint=handle_sse),
            Mount("/messages/", app=sse.handle_post_message),
            Route("/sse/health", endpoint=health_check, methods=["GET"]),
        ],
    )


if __name__ == "__main__":
    mcp_server = mcp._mcp_server

    parser = argparse.ArgumentParser(description="Run MCP SSE server")
    parser.add_argument("--host", default="0.0.0.0", help="Server host")
    parser.add_argument("--port", default=12345, type=int, help="Server port")
    args = parser.parse_args()

    starlette_app = create_starlette_app(mcp_server, debug=True)
    uvicorn.run(starlette_app, host=args.host, port=args.port)
`
